package domain

import "time"

// AuditAction names a recorded lifecycle action.
type AuditAction string

const (
	AuditCodeCreated       AuditAction = "code_created"
	AuditCodeUsed          AuditAction = "code_used"
	AuditCodeReleased      AuditAction = "code_released"
	AuditCodeUpdated       AuditAction = "code_updated"
	AuditCodeDeactivated   AuditAction = "code_deactivated"
	AuditCodeDeleted       AuditAction = "code_deleted"
	AuditUserRegistered    AuditAction = "user_registered"
	AuditUserApproved      AuditAction = "user_approved"
	AuditUserRejected      AuditAction = "user_rejected"
	AuditUserSuspended     AuditAction = "user_suspended"
	AuditUserPromoted      AuditAction = "user_promoted"
	AuditUserMarkedFounder AuditAction = "user_marked_founder"
)

// AuditEntry records who did what to which resource.
type AuditEntry struct {
	ID        string         `json:"id" bson:"_id"`
	Action    AuditAction    `json:"action" bson:"action"`
	Actor     string         `json:"actor" bson:"actor"`
	Target    string         `json:"target" bson:"target"`
	Details   map[string]any `json:"details,omitempty" bson:"details,omitempty"`
	CreatedAt time.Time      `json:"created_at" bson:"created_at"`
}
