package enum

type EntityType string

const (
	EMAIL        EntityType = "EMAIL"
	TRIAGE_ROUND EntityType = "TRIAGE_ROUND"
)

func (entityType EntityType) String() string {
	return string(entityType)
}
