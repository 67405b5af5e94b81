package logg

const (
	Layer     = "layer"
	Operation = "operation"
	SessionID = "session_id"
	Action    = "action"
	Strategy  = "strategy"
	Locator   = "locator"
	Tag       = "tag"
	URL       = "url"
	Path      = "path"
)
