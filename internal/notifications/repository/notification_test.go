package repository

import (
	"testing"

	"bookline/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
)

func TestVisibilityFilter(t *testing.T) {
	tests := []struct {
		name        string
		user        *model.User
		wantClauses int
	}{
		{name: "company member", user: &model.User{ID: "u1", CompanyID: "c1"}, wantClauses: 3},
		{name: "platform customer", user: &model.User{ID: "u2"}, wantClauses: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			filter := VisibilityFilter(tt.user)
			clauses, ok := filter["$or"].(bson.A)
			if !ok {
				t.Fatalf("expected $or clause list, got %T", filter["$or"])
			}
			if len(clauses) != tt.wantClauses {
				t.Fatalf("clauses = %d, want %d", len(clauses), tt.wantClauses)
			}
			specific := clauses[0].(bson.M)
			if specific["recipient_id"] != tt.user.ID {
				t.Errorf("specific clause targets %v", specific["recipient_id"])
			}
			for _, c := range clauses {
				m := c.(bson.M)
				if m["scope"] == model.ScopeCompany && m["company_id"] == "" {
					t.Error("company clause must not match an empty company")
				}
			}
		})
	}
}
