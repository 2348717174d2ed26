package ws

// Client-emitted event names. join/leave are handled by the connection
// lifecycle and never fan out.
const (
	JoinProject  = "join-project"
	LeaveProject = "leave-project"

	AddAnnotation           = "addAnnotation"
	ResolveAnnotation       = "resolveAnnotation"
	AddAnnotationReply      = "addAnnotationReply"
	AnnotationStatusChanged = "annotationStatusChanged"
	UpdateElementStatus     = "updateElementStatus"
	ReviewStatusChanged     = "reviewStatusChanged"
	Typing                  = "typing"
)

// Broker-emitted event names.
const (
	AnnotationAdded          = "annotationAdded"
	AnnotationResolved       = "annotationResolved"
	AnnotationReplyAdded     = "annotationReplyAdded"
	AnnotationStatusUpdated  = "annotationStatusUpdated"
	StatusChanged            = "statusChanged"
	ReviewStatusUpdated      = "reviewStatusUpdated"
	ElementStatusChangedEvnt = "element-status-changed"
)

// Policy selects the fan-out target set for one event kind.
type Policy int

const (
	// ExcludeSender delivers to every room member except the originating
	// connection. Default for client-emitted events.
	ExcludeSender Policy = iota

	// IncludeAll delivers to every room member, the originator included.
	// Used by review status changes and all server-originated announcements.
	IncludeAll
)
