// Package preview is the server shell around the render pipeline: it
// accepts browser sessions over WebSocket, binds one pipeline to each,
// serves mounted side-asset directories, and guarantees session-scoped
// teardown of temporary artifacts.
package preview
