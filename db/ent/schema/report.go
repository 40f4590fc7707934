package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/dialect"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"

	"github.com/google/uuid"

	"github.com/foundly-app/foundly/constants"
	"github.com/foundly-app/foundly/db/ent/schema/utils"
)

type Report struct{ ent.Schema }

func (Report) Annotations() []schema.Annotation {
	return []schema.Annotation{
		entsql.Annotation{Table: "reports"},
	}
}

func (Report) Fields() []ent.Field {
	return []ent.Field{
		field.UUID("id", uuid.UUID{}).
			Default(uuid.New).
			Immutable().
			StorageKey("id"),
		field.String("report_type").
			Immutable().
			Validate(utils.EnumValidator(
				string(constants.ReportTypeLost),
				string(constants.ReportTypeFound),
			)),
		field.String("title").NotEmpty().MaxLen(120),
		field.String("description").NotEmpty(),
		field.String("summary").Optional(),
		field.String("category").
			Default(string(constants.Other)).
			Validate(utils.EnumValidator(constants.AsStringSlice()...)),
		field.JSON("specs", map[string]string{}).Optional(),
		field.String("location").NotEmpty().MaxLen(200),
		field.Time("occurred_at").
			SchemaType(map[string]string{dialect.Postgres: "date"}),
		field.String("time_of_day").Optional(),
		field.JSON("image_urls", []string{}).Optional().
			SchemaType(map[string]string{dialect.Postgres: "text[]"}),
		field.JSON("tags", []string{}).Optional().
			SchemaType(map[string]string{dialect.Postgres: "text[]"}),
		field.String("status").
			Default(string(constants.ReportStatusOpen)).
			Validate(utils.EnumValidator(
				string(constants.ReportStatusOpen),
				string(constants.ReportStatusResolved),
			)),
		field.String("user_id").NotEmpty(),
		field.String("user_name").Optional(),
		field.Time("created_at").Default(time.Now),
		field.Time("updated_at").Default(time.Now).UpdateDefault(time.Now),
	}
}

func (Report) Edges() []ent.Edge {
	return []ent.Edge{
		// MANY reports -> ONE profile (FK: reports.user_id)
		edge.From("owner", Profile.Type).
			Ref("reports").
			Field("user_id").
			Required().
			Unique(),
	}
}

func (Report) Indexes() []ent.Index {
	return []ent.Index{
		// the match-scan snapshot query: open reports by polarity and date
		index.Fields("status", "report_type", "occurred_at"),
		index.Fields("user_id"),
	}
}
