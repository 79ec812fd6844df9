// Package notify carries engine state changes to interested observers.
// The engine publishes; presentation layers and sinks subscribe.
package notify

import (
	"encoding/json"
	"fmt"
	"time"

	"tycooncore/pkg/domain"
)

// Kind names an event type on the wire.
type Kind string

const (
	KindUpgradeApplied    Kind = "upgrade_applied"
	KindAssignmentChanged Kind = "assignment_changed"
	KindFundsChanged      Kind = "funds_changed"
	KindSlotChanged       Kind = "slot_changed"
	KindPeriodAdvanced    Kind = "period_advanced"
)

// Event is implemented by every published payload.
type Event interface {
	Kind() Kind
}

// UpgradeApplied is published after a confirmed upgrade has been committed.
type UpgradeApplied struct {
	BarID            string          `json:"bar_id"`
	Category         domain.Category `json:"category"`
	NewLevel         int             `json:"new_level"`
	NewCap           int             `json:"new_cap"`
	SalesVolumeDelta int             `json:"sales_volume_delta"`
}

// AssignmentAction describes how a staff list changed.
type AssignmentAction string

const (
	ActionAssigned   AssignmentAction = "assigned"
	ActionUnassigned AssignmentAction = "unassigned"
	ActionHired      AssignmentAction = "hired"
	ActionFired      AssignmentAction = "fired"
)

// AssignmentChanged is published once per affected bar.
type AssignmentChanged struct {
	BarID      string           `json:"bar_id"`
	EmployeeID string           `json:"employee_id"`
	Action     AssignmentAction `json:"action"`
}

// FundsChanged is published whenever the player's funds move.
type FundsChanged struct {
	Funds  int    `json:"funds"`
	Delta  int    `json:"delta"`
	Reason string `json:"reason"`
}

// SlotChanged is published when a slot is bought or sold.
type SlotChanged struct {
	SlotIndex int    `json:"slot_index"`
	BarID     string `json:"bar_id,omitempty"`
	Purchased bool   `json:"purchased"`
}

// PeriodAdvanced is published at the end of each business period.
type PeriodAdvanced struct {
	Period    int  `json:"period"`
	Rank      int  `json:"rank"`
	NetProfit int  `json:"net_profit"`
	Review    bool `json:"review"`
	Passed    bool `json:"passed,omitempty"`
}

func (UpgradeApplied) Kind() Kind    { return KindUpgradeApplied }
func (AssignmentChanged) Kind() Kind { return KindAssignmentChanged }
func (FundsChanged) Kind() Kind      { return KindFundsChanged }
func (SlotChanged) Kind() Kind       { return KindSlotChanged }
func (PeriodAdvanced) Kind() Kind    { return KindPeriodAdvanced }

// Envelope is the serialized form forwarded to external sinks.
type Envelope struct {
	Kind Kind            `json:"kind"`
	At   time.Time       `json:"at"`
	Data json.RawMessage `json:"data"`
}

// Encode wraps e in an Envelope and marshals it.
func Encode(e Event, at time.Time) ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", e.Kind(), err)
	}
	return json.Marshal(Envelope{Kind: e.Kind(), At: at.UTC(), Data: data})
}

// Decode reverses Encode, returning the concrete event value.
func Decode(payload []byte) (Event, time.Time, error) {
	var env Envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, time.Time{}, fmt.Errorf("decode envelope: %w", err)
	}
	var (
		ev  Event
		err error
	)
	switch env.Kind {
	case KindUpgradeApplied:
		ev, err = decodeAs[UpgradeApplied](env.Data)
	case KindAssignmentChanged:
		ev, err = decodeAs[AssignmentChanged](env.Data)
	case KindFundsChanged:
		ev, err = decodeAs[FundsChanged](env.Data)
	case KindSlotChanged:
		ev, err = decodeAs[SlotChanged](env.Data)
	case KindPeriodAdvanced:
		ev, err = decodeAs[PeriodAdvanced](env.Data)
	default:
		return nil, time.Time{}, fmt.Errorf("unknown event kind %q", env.Kind)
	}
	if err != nil {
		return nil, time.Time{}, err
	}
	return ev, env.At, nil
}

func decodeAs[E Event](data json.RawMessage) (Event, error) {
	var e E
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("decode %s: %w", e.Kind(), err)
	}
	return e, nil
}
