// Package panel serves the climate dashboard, a small static web page that
// lists every IR climate device, follows state changes over the WebSocket
// and sends commands through the REST API.
//
// The assets are embedded with go:embed. Handler can instead serve them from
// a directory so the page can be edited without rebuilding.
package panel
