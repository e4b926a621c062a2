package validators

import "go.mongodb.org/mongo-driver/bson"

var NotificationScopes = []string{
	"specific",
	"company",
	"all",
}

// NotificationValidator also enforces the scope-dependent target fields.
var NotificationValidator = bson.M{
	"$and": bson.A{
		bson.M{
			"$jsonSchema": bson.M{
				"bsonType": "object",
				"required": []string{
					"title",
					"message",
					"scope",
					"is_read",
					"created_at",
				},
				"additionalProperties": true,

				"properties": bson.M{
					"_id": bson.M{
						"bsonType": "objectId",
					},

					"title": bson.M{
						"bsonType":  "string",
						"minLength": 1,
						"maxLength": 200,
					},

					"message": bson.M{
						"bsonType":  "string",
						"minLength": 1,
						"maxLength": 2000,
					},

					"category": bson.M{
						"bsonType": "string",
					},

					"scope": bson.M{
						"bsonType": "string",
						"enum":     NotificationScopes,
					},

					"recipient_id": bson.M{
						"bsonType": "string",
					},

					"company_id": bson.M{
						"bsonType": "string",
					},

					"is_read": bson.M{
						"bsonType": "bool",
					},

					"read_at": bson.M{
						"bsonType": "date",
					},

					"created_at": bson.M{
						"bsonType": "date",
					},
				},
			},
		},
		bson.M{
			"$or": bson.A{
				bson.M{"scope": "all"},
				bson.M{"scope": "specific", "recipient_id": bson.M{"$exists": true}},
				bson.M{"scope": "company", "company_id": bson.M{"$exists": true}},
			},
		},
	},
}
