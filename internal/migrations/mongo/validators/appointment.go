package validators

import "go.mongodb.org/mongo-driver/bson"

var AppointmentStatuses = []string{
	"pending",
	"confirmed",
	"completed",
	"cancelled",
	"no-show",
}

var AppointmentValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"company_id",
			"staff_id",
			"service_id",
			"is_guest",
			"date",
			"start_time",
			"end_time",
			"status",
			"created_by",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "objectId",
			},

			"company_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
			},

			"staff_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
			},

			"service_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
			},

			"customer_id": bson.M{
				"bsonType": "string",
			},

			"customer_phone_digits": bson.M{
				"bsonType": "string",
				"pattern":  `^[0-9]*$`,
			},

			"customer_email_key": bson.M{
				"bsonType": "string",
			},

			"is_guest": bson.M{
				"bsonType": "bool",
			},

			"date": bson.M{
				"bsonType": "string",
				"pattern":  `^\d{4}-\d{2}-\d{2}$`,
			},

			"start_time": bson.M{
				"bsonType": "string",
				"pattern":  `^([01]\d|2[0-3]):[0-5]\d$`,
			},

			"end_time": bson.M{
				"bsonType": "string",
				"pattern":  `^([01]\d|2[0-3]):[0-5]\d$`,
			},

			"status": bson.M{
				"bsonType": "string",
				"enum":     AppointmentStatuses,
			},

			"notes": bson.M{
				"bsonType":  "string",
				"maxLength": 1000,
			},

			"status_history": bson.M{
				"bsonType": "array",
				"items": bson.M{
					"bsonType": "object",
					"required": []string{"status", "changed_at"},
					"properties": bson.M{
						"status": bson.M{
							"bsonType": "string",
							"enum":     AppointmentStatuses,
						},
						"changed_by": bson.M{
							"bsonType": "string",
						},
						"changed_at": bson.M{
							"bsonType": "date",
						},
					},
				},
			},

			"created_by": bson.M{
				"bsonType": "string",
			},

			"created_at": bson.M{
				"bsonType": "date",
			},

			"updated_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
