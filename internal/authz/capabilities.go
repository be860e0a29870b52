package authz

// Capability names. Grants are stored per employee per company; hr and admin
// roles carry the leave capabilities implicitly (see provider policy load).
const (
	CapCompanyManage  = "company:manage"
	CapPolicyManage   = "policy:manage"
	CapEmployeeManage = "employee:manage"

	// CapLeaveApproveAll allows deciding any request in the company.
	CapLeaveApproveAll = "leave:approve_all"
	// CapLeaveApproveTeam allows deciding requests owned by the actor's
	// direct reports.
	CapLeaveApproveTeam = "leave:approve_team"
	// CapLeaveCancelAny allows cancelling any request regardless of state.
	CapLeaveCancelAny = "leave:cancel_any"
)
