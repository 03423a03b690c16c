package entity

import (
	"encoding/json"
	"fmt"
)

// PositionAudit is one entry of a correction document's audit payload,
// recording what a single position looked like before the correction and,
// for full corrections, what replaced it. The payload is the only durable
// record of why amounts changed; it is validated both when written and when
// read back so a malformed blob never goes unnoticed.
type PositionAudit struct {
	Kind string `json:"kind"` // PARTIAL_CANCEL | CORRECTION | FULL_CANCEL

	// Position is 1-based for display, OriginalIndex is the 0-based slice
	// index the caller addressed.
	Position      int `json:"position"`
	OriginalIndex int `json:"original_index"`

	OriginalDescription string  `json:"original_description"`
	OriginalQuantity    float64 `json:"original_quantity"`
	OriginalUnitPrice   float64 `json:"original_unit_price"`
	OriginalTaxType     string  `json:"original_tax_type"`

	// Partial cancellation only
	CancelledQuantity *float64 `json:"cancelled_quantity,omitempty"`

	// Full correction only; nil means the field was kept
	NewDescription *string  `json:"new_description,omitempty"`
	NewQuantity    *float64 `json:"new_quantity,omitempty"`
	NewUnitPrice   *float64 `json:"new_unit_price,omitempty"`
	NewTaxType     *string  `json:"new_tax_type,omitempty"`
}

// Validate checks the variant invariants of a single audit entry.
func (a *PositionAudit) Validate() error {
	if a.Position < 1 {
		return fmt.Errorf("audit entry: position %d is not 1-based", a.Position)
	}
	if a.OriginalIndex < 0 {
		return fmt.Errorf("audit entry: negative original index %d", a.OriginalIndex)
	}
	switch a.Kind {
	case CorrectionTypePartialCancel:
		if a.CancelledQuantity == nil {
			return fmt.Errorf("audit entry position %d: partial cancellation without cancelled quantity", a.Position)
		}
		if a.NewDescription != nil || a.NewQuantity != nil || a.NewUnitPrice != nil || a.NewTaxType != nil {
			return fmt.Errorf("audit entry position %d: partial cancellation carries replacement values", a.Position)
		}
	case CorrectionTypeCorrection:
		if a.NewDescription == nil && a.NewQuantity == nil && a.NewUnitPrice == nil && a.NewTaxType == nil {
			return fmt.Errorf("audit entry position %d: correction without any new value", a.Position)
		}
		if a.CancelledQuantity != nil {
			return fmt.Errorf("audit entry position %d: correction carries a cancelled quantity", a.Position)
		}
	case CorrectionTypeFullCancel:
		if a.CancelledQuantity == nil {
			return fmt.Errorf("audit entry position %d: full cancellation without cancelled quantity", a.Position)
		}
	default:
		return fmt.Errorf("audit entry position %d: unknown kind %q", a.Position, a.Kind)
	}
	return nil
}

// MarshalAudit serializes and validates an audit payload.
func MarshalAudit(entries []PositionAudit) (string, error) {
	for i := range entries {
		if err := entries[i].Validate(); err != nil {
			return "", err
		}
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return "", fmt.Errorf("marshal audit payload: %w", err)
	}
	return string(data), nil
}

// UnmarshalAudit parses and validates a stored audit payload.
func UnmarshalAudit(payload string) ([]PositionAudit, error) {
	if payload == "" {
		return nil, nil
	}
	var entries []PositionAudit
	if err := json.Unmarshal([]byte(payload), &entries); err != nil {
		return nil, fmt.Errorf("unmarshal audit payload: %w", err)
	}
	for i := range entries {
		if err := entries[i].Validate(); err != nil {
			return nil, err
		}
	}
	return entries, nil
}
