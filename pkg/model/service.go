package model

type Service struct {
	ID          string `json:"id,omitempty" bson:"_id,omitempty"`
	CompanyID   string `json:"company_id" bson:"company_id"`
	Name        string `json:"name" bson:"name"`
	DurationMin int    `json:"duration_min" bson:"duration_min"`
	Disabled    bool   `json:"disabled,omitempty" bson:"disabled,omitempty"`
}
