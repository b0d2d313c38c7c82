package model

// Roles recognized by the authorization layer.  CLIENT users book spaces,
// OPERATOR users manage spaces and the reservations on them, ADMIN users
// bypass ownership and cancellation-window checks.  User account records
// themselves live in the repository layer.
const (
	RoleClient   = "CLIENT"
	RoleOperator = "OPERATOR"
	RoleAdmin    = "ADMIN"
)
