package enums

// SupportRequestStatus tracks how far a support ticket has progressed.
type SupportRequestStatus string

const (
	SupportRequestStatusOpen       SupportRequestStatus = "open"
	SupportRequestStatusInProgress SupportRequestStatus = "in_progress"
	SupportRequestStatusResolved   SupportRequestStatus = "resolved"
	SupportRequestStatusClosed     SupportRequestStatus = "closed"
)

var supportRequestStatuses = values[SupportRequestStatus]{
	SupportRequestStatusOpen,
	SupportRequestStatusInProgress,
	SupportRequestStatusResolved,
	SupportRequestStatusClosed,
}

func (s SupportRequestStatus) String() string { return string(s) }

func (s SupportRequestStatus) IsValid() bool { return supportRequestStatuses.has(s) }

// IsFinished reports whether the request no longer needs attention.
func (s SupportRequestStatus) IsFinished() bool {
	return s == SupportRequestStatusResolved || s == SupportRequestStatusClosed
}

func ParseSupportRequestStatus(value string) (SupportRequestStatus, error) {
	return supportRequestStatuses.parse(value, "support request status")
}
