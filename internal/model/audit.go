package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type AuditLog struct {
	ID         uuid.UUID       `json:"id" db:"id"`
	UserID     *uuid.UUID      `json:"user_id,omitempty" db:"user_id"`
	Action     string          `json:"action" db:"action"`
	EntityType string          `json:"entity_type" db:"entity_type"`
	EntityID   uuid.UUID       `json:"entity_id" db:"entity_id"`
	Changes    json.RawMessage `json:"changes" db:"changes"`
	IPAddress  string          `json:"ip_address" db:"ip_address"`
	UserAgent  string          `json:"user_agent" db:"user_agent"`
	CreatedAt  time.Time       `json:"created_at" db:"created_at"`
}

const (
	// Action types
	AuditActionCreate       = "create"
	AuditActionUpdate       = "update"
	AuditActionLogin        = "login"
	AuditActionCardActivate = "card_activate"
	AuditActionCardDaily    = "card_daily_activate"
	AuditActionCardSuspend  = "card_suspend"
	AuditActionCardSweep    = "card_sweep_deactivate"
	AuditActionPolicyUpdate = "card_policy_update"
	AuditActionStatusChange = "status_change"

	// Entity types
	AuditEntityUser        = "user"
	AuditEntityPatient     = "patient"
	AuditEntityAppointment = "appointment"
	AuditEntityCardPolicy  = "card_policy"
)

type AuditFilters struct {
	EntityType string
	EntityID   *uuid.UUID
	UserID     *uuid.UUID
	Limit      int
}
