package runtime

// Status is the bridge lifecycle state shown to operators.
type Status int

const (
	StatusUninitialized Status = iota
	StatusInitializingPlugin
	StatusInitializingModules
	StatusInitializationAborted
	StatusAwaitingGuildDownload
	StatusPostServerInit
	StatusShuttingDownPlugin
	StatusShuttingDownModules
	StatusConnected
	StatusServerConnectionFailed
	StatusDisconnected
)

var statusNames = [...]string{
	StatusUninitialized:          "Uninitialized",
	StatusInitializingPlugin:     "InitializingPlugin",
	StatusInitializingModules:    "InitializingModules",
	StatusInitializationAborted:  "InitializationAborted",
	StatusAwaitingGuildDownload:  "AwaitingGuildDownload",
	StatusPostServerInit:         "PostServerInit",
	StatusShuttingDownPlugin:     "ShuttingDownPlugin",
	StatusShuttingDownModules:    "ShuttingDownModules",
	StatusConnected:              "Connected",
	StatusServerConnectionFailed: "ServerConnectionFailed",
	StatusDisconnected:           "Disconnected",
}

var statusDescriptions = [...]string{
	StatusUninitialized:          "Uninitialized",
	StatusInitializingPlugin:     "Initializing plugin",
	StatusInitializingModules:    "Initializing modules",
	StatusInitializationAborted:  "Initialization aborted",
	StatusAwaitingGuildDownload:  "Awaiting guild download",
	StatusPostServerInit:         "Performing post server init",
	StatusShuttingDownPlugin:     "Shutting down plugin",
	StatusShuttingDownModules:    "Shutting down modules",
	StatusConnected:              "Connected and running",
	StatusServerConnectionFailed: "Discord server connection failed",
	StatusDisconnected:           "Disconnected",
}

func (s Status) String() string {
	if s < 0 || int(s) >= len(statusNames) {
		return "Unknown"
	}
	return statusNames[s]
}

func (s Status) Description() string {
	if s < 0 || int(s) >= len(statusDescriptions) {
		return "Unknown"
	}
	return statusDescriptions[s]
}
