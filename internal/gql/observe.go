package gql

import "github.com/rs/zerolog"

// Category buckets a failed operation into exactly one user-facing
// notification kind.
type Category int

const (
	// CategoryNetwork covers transport-level connectivity failures.
	CategoryNetwork Category = iota
	// CategoryPermissionDenied covers authorization rejections.
	CategoryPermissionDenied
	// CategorySessionExpired covers expired or invalid session tokens.
	CategorySessionExpired
	// CategoryGeneric covers everything else.
	CategoryGeneric
)

func (c Category) String() string {
	switch c {
	case CategoryNetwork:
		return "network"
	case CategoryPermissionDenied:
		return "permission_denied"
	case CategorySessionExpired:
		return "session_expired"
	default:
		return "generic"
	}
}

// Notification is one user-facing message derived from a failed operation.
type Notification struct {
	Category Category
	Message  string
}

// Notifier receives user-facing notifications. The HTTP layer surfaces them
// on the response; tests capture them; a headless process may drop them.
type Notifier interface {
	Notify(Notification)
}

// CaptureNotifier records notifications for inspection in tests.
type CaptureNotifier struct {
	Notifications []Notification
}

// Notify implements Notifier.
func (c *CaptureNotifier) Notify(n Notification) {
	c.Notifications = append(c.Notifications, n)
}

// NopNotifier drops notifications, for environments with no user to notify.
type NopNotifier struct{}

// Notify implements Notifier.
func (NopNotifier) Notify(Notification) {}

const (
	msgNetwork          = "Network error - please check your connection"
	msgPermissionDenied = "You do not have permission to perform this action"
	msgSessionExpired   = "Your session has expired, please sign in again"
	msgGeneric          = "Something went wrong"
)

const (
	codeAccessDenied = "access-denied"
	codeInvalidJWT   = "invalid-jwt"
)

// Observer maps operation errors onto notifications and diagnostics. It is
// an observer, not a gate: it never returns an error and the caller of
// Request/Mutate still holds the raw error and decides what to do with it.
type Observer struct {
	Notifier Notifier
	Logger   zerolog.Logger
}

// Observe classifies a failed operation. A transport-level failure produces
// one connectivity notification regardless of any structured errors riding
// along. Otherwise each structured error is classified and surfaced
// independently: one notification per error, never a merged one. Every error
// is logged whether or not anything is notified.
func (o Observer) Observe(opErr *OperationError) {
	if opErr == nil {
		return
	}
	if opErr.NetworkError != nil {
		o.Logger.Error().Err(opErr.NetworkError).Msg("graphql network error")
		o.notify(Notification{Category: CategoryNetwork, Message: msgNetwork})
		return
	}
	for _, gqlErr := range opErr.GraphQLErrors {
		o.Logger.Error().
			Str("code", gqlErr.Code()).
			Interface("path", gqlErr.Path).
			Str("message", gqlErr.Message).
			Msg("graphql operation error")
		o.notify(classify(gqlErr))
	}
}

func (o Observer) notify(n Notification) {
	if o.Notifier == nil {
		return
	}
	o.Notifier.Notify(n)
}

func classify(gqlErr GraphQLError) Notification {
	switch gqlErr.Code() {
	case codeAccessDenied:
		return Notification{Category: CategoryPermissionDenied, Message: msgPermissionDenied}
	case codeInvalidJWT:
		return Notification{Category: CategorySessionExpired, Message: msgSessionExpired}
	default:
		message := gqlErr.Message
		if message == "" {
			message = msgGeneric
		}
		return Notification{Category: CategoryGeneric, Message: message}
	}
}
