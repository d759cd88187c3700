// Package climate models an IR-driven climate device.
//
// The device has no channel of its own: it is driven by transmitting
// pre-recorded IR codes from an irtable.Table and it learns its ambient
// temperature and power state from external signals it does not control.
//
// # Architecture
//
//	  user command          sensor reading        power expression
//	       │                      │                      │
//	       ▼                      ▼                      ▼
//	┌─────────────────────────────────────────────────────────────┐
//	│                         Device                              │
//	│  mutate State ──▶ Resolve(table, state) ──▶ Transmit(code)  │
//	│                         │                                   │
//	│                         └──▶ Enabled features ──▶ OnChange  │
//	└─────────────────────────────────────────────────────────────┘
//
// Resolve is a pure function. It checks, in order, the on flag (power-off
// code), the away flag (idle code), then walks operation, fan and integer
// target temperature. How deep the walk got decides which features are
// enabled: an operation-level code disables fan and temperature control, a
// fan-level code disables temperature control. A miss transmits nothing,
// keeps the previous feature set and is reported as a *LookupError.
//
// The temperature adapter (UpdateTemperature) never resolves. The power
// adapter (UpdatePower) overwrites the on flag and resolves. Both always
// notify, so observers see "ambient now unknown" transitions too.
//
// # Key Types
//
//   - Device: owns State, applies setpoint operations and signal updates
//   - Feature: capability bitmask reported to the host
//   - Snapshot / Attributes: reported state and its persisted form
//   - Repository / HistoryRepository: SQLite persistence of snapshots
//
// # Thread Safety
//
// A Device is owned by a single goroutine. The IR bridge serialises every
// stimulus onto its event loop before calling into the device.
package climate
