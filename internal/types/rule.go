package types

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ConditionOperator is the comparison applied between a context metric and a
// rule condition's threshold value.
type ConditionOperator string

const (
	OpGT  ConditionOperator = "gt"
	OpGTE ConditionOperator = "gte"
	OpLT  ConditionOperator = "lt"
	OpLTE ConditionOperator = "lte"
	OpEQ  ConditionOperator = "eq"
	OpNEQ ConditionOperator = "neq"
)

func ValidConditionOperator(op ConditionOperator) bool {
	switch op {
	case OpGT, OpGTE, OpLT, OpLTE, OpEQ, OpNEQ:
		return true
	}
	return false
}

// Combinator joins a condition's truth value with the running accumulator.
// Conditions are folded strictly left to right; there is no operator
// precedence between AND and OR.
type Combinator string

const (
	CombinatorAnd Combinator = "AND"
	CombinatorOr  Combinator = "OR"
)

type RuleCondition struct {
	Metric     string            `json:"metric"`
	Operator   ConditionOperator `json:"operator"`
	Value      float64           `json:"value"`
	Combinator Combinator        `json:"combinator,omitempty"`
}

type ActionType string

const (
	ActionAddProtocol ActionType = "add_protocol"
)

type RuleAction struct {
	Type         ActionType  `json:"type"`
	ProtocolIDs  []uuid.UUID `json:"protocol_ids,omitempty"`
	ProtocolTags []string    `json:"protocol_tags,omitempty"`
}

// Rule is a declarative condition/action mapping owned by the admin surface.
// The pipeline only reads enabled rules, highest priority first.
type Rule struct {
	ID         uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Name       string         `gorm:"uniqueIndex;not null;column:name" json:"name"`
	Enabled    bool           `gorm:"column:enabled;not null;default:true" json:"enabled"`
	Priority   int            `gorm:"column:priority;not null;default:0" json:"priority"`
	Conditions datatypes.JSON `gorm:"type:jsonb;column:conditions" json:"conditions"`
	Actions    datatypes.JSON `gorm:"type:jsonb;column:actions" json:"actions"`
	CreatedAt  time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt  time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Rule) TableName() string { return "rule" }

// DecodeConditions unmarshals the stored condition list into its typed form.
// A missing or empty column decodes to an empty slice, never an error.
func (r *Rule) DecodeConditions() ([]RuleCondition, error) {
	if len(r.Conditions) == 0 {
		return []RuleCondition{}, nil
	}
	var out []RuleCondition
	if err := json.Unmarshal(r.Conditions, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Rule) DecodeActions() ([]RuleAction, error) {
	if len(r.Actions) == 0 {
		return []RuleAction{}, nil
	}
	var out []RuleAction
	if err := json.Unmarshal(r.Actions, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// EncodeConditions is the write-side counterpart used by the admin surface
// and seeds so condition JSON always round-trips through the typed form.
func EncodeConditions(conds []RuleCondition) (datatypes.JSON, error) {
	b, err := json.Marshal(conds)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(b), nil
}

func EncodeActions(actions []RuleAction) (datatypes.JSON, error) {
	b, err := json.Marshal(actions)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(b), nil
}
