package usercontext

// Shared Locals keys used across controllers and middlewares
const (
	LocalsKey        = "USER_CONTEXT"
	KeyUserID        = "user_id"
	KeyUsername      = "username"
	KeyIsAdmin       = "isAdmin"
	KeyFromProtected = "from_protected"
)
