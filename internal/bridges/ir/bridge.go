package ir

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nerrad567/gray-logic-irclimate/internal/audit"
	"github.com/nerrad567/gray-logic-irclimate/internal/climate"
	"github.com/nerrad567/gray-logic-irclimate/internal/expr"
	"github.com/nerrad567/gray-logic-irclimate/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-irclimate/internal/infrastructure/metrics"
	"github.com/nerrad567/gray-logic-irclimate/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-irclimate/internal/irtable"
)

const (
	eventQueueSize   = 256
	auditQueueSize   = 256
	persistQueueSize = 256

	persistTimeout = 5 * time.Second
	sendTimeout    = 10 * time.Second
	pruneInterval  = 24 * time.Hour

	// WSChannelState is the WebSocket channel state changes are broadcast on.
	WSChannelState = "climate.state"

	adapterSensor = "sensor"
	adapterPower  = "power"

	sourceMQTT    = "mqtt"
	sourceUnknown = "unknown"
)

// Logger interface for optional logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// MQTTClient is the subset of the MQTT client the bridge uses.
type MQTTClient interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(topic string) error
	IsConnected() bool
}

// Telemetry receives time-series points. Satisfied by *influxdb.Client.
type Telemetry interface {
	WriteClimateState(s influxdb.ClimateSample)
	WriteTransmission(deviceID, remote, result string)
}

// Auditor records every command the bridge receives. Satisfied by
// *audit.SQLiteRepository.
type Auditor interface {
	Create(ctx context.Context, e *audit.Entry) error
	Prune(ctx context.Context, olderThan time.Duration) (int64, error)
}

// Broadcaster fans state changes out to live clients. Satisfied by the API
// WebSocket hub.
type Broadcaster interface {
	Broadcast(channel string, payload any)
}

// BridgeOptions holds the collaborators of a bridge. Config and MQTTClient
// are required; everything else is optional.
type BridgeOptions struct {
	Config     *Config
	MQTTClient MQTTClient

	// Sender overrides the transmitter selected by Config.Transmitter.
	Sender Sender

	Repository  climate.Repository
	History     climate.HistoryRepository
	Audit       Auditor
	Telemetry   Telemetry
	Metrics     *metrics.Metrics
	Broadcaster Broadcaster
	Logger      Logger

	// HistoryRetention prunes older history and audit entries at start and
	// daily.
	// Zero keeps everything.
	HistoryRetention time.Duration

	Version string
}

// Bridge connects IR climate devices to MQTT.
//
// Every stimulus (command, sensor reading, power change, restore) for every
// device runs on a single event loop goroutine, so devices never see
// concurrent calls. Transmissions leave through a bounded queue drained by a
// separate sender goroutine. State persistence and audit entries are written
// by their own writer goroutines, so a slow database never holds up the loop.
type Bridge struct {
	cfg         *Config
	mqtt        MQTTClient
	sender      Sender
	repo        climate.Repository
	history     climate.HistoryRepository
	audit       Auditor
	telemetry   Telemetry
	metrics     *metrics.Metrics
	broadcaster Broadcaster
	health      *HealthReporter
	logger      Logger
	retention   time.Duration

	// Immutable after NewBridge.
	devices   map[string]*managedDevice
	order     []string
	sensors   map[string][]string // temperature entity -> device ids
	powerDeps map[string][]string // power template entity -> device ids

	states *expr.States

	snapMu    sync.RWMutex
	snapshots map[string]climate.Snapshot

	events    chan func()
	outbox    chan RemoteCommand
	auditCh   chan *audit.Entry
	persistCh chan persistJob

	commandsReceived atomic.Uint64
	transmissions    atomic.Uint64
	transmitErrors   atomic.Uint64
	lookupMisses     atomic.Uint64
	adapterFailures  atomic.Uint64

	running   atomic.Bool
	done      chan struct{}
	wg        sync.WaitGroup
	flush     chan struct{} // closed once the loop has exited
	writers   sync.WaitGroup
	stopOnce  sync.Once
	ctx       context.Context
	ctxCancel context.CancelFunc
}

// persistJob is one state change waiting to be saved.
type persistJob struct {
	snap   climate.Snapshot
	reason climate.Reason
}

type managedDevice struct {
	cfg      DeviceConfig
	settings climate.Config // with defaults applied
	device   *climate.Device
	power    *expr.Template
}

// NewBridge builds every configured device. Call Start to begin operation.
func NewBridge(opts BridgeOptions) (*Bridge, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if opts.MQTTClient == nil {
		return nil, fmt.Errorf("MQTT client is required")
	}

	sender := opts.Sender
	ownSender := sender == nil
	if ownSender {
		var err error
		sender, err = NewSender(opts.Config.Transmitter, opts.MQTTClient)
		if err != nil {
			return nil, err
		}
	}

	ctx, ctxCancel := context.WithCancel(context.Background())

	b := &Bridge{
		cfg:         opts.Config,
		mqtt:        opts.MQTTClient,
		sender:      sender,
		repo:        opts.Repository,
		history:     opts.History,
		audit:       opts.Audit,
		telemetry:   opts.Telemetry,
		metrics:     opts.Metrics,
		broadcaster: opts.Broadcaster,
		logger:      opts.Logger,
		retention:   opts.HistoryRetention,
		devices:     make(map[string]*managedDevice, len(opts.Config.Devices)),
		sensors:     make(map[string][]string),
		powerDeps:   make(map[string][]string),
		states:      expr.NewStates(),
		snapshots:   make(map[string]climate.Snapshot, len(opts.Config.Devices)),
		events:      make(chan func(), eventQueueSize),
		outbox:      make(chan RemoteCommand, opts.Config.QueueSize()),
		auditCh:     make(chan *audit.Entry, auditQueueSize),
		persistCh:   make(chan persistJob, persistQueueSize+len(opts.Config.Devices)),
		done:        make(chan struct{}),
		flush:       make(chan struct{}),
		ctx:         ctx,
		ctxCancel:   ctxCancel,
	}

	for _, dc := range opts.Config.Devices {
		if err := b.addDevice(dc); err != nil {
			ctxCancel()
			if ownSender {
				sender.Close() //nolint:errcheck // best effort on error path
			}
			return nil, err
		}
	}

	b.health = NewHealthReporter(HealthReporterConfig{
		BridgeID:    opts.Config.Bridge.ID,
		Version:     opts.Version,
		Transmitter: sender.Kind(),
		Interval:    opts.Config.GetHealthInterval(),
		Publisher:   opts.MQTTClient,
		Stats:       b.Stats,
	})
	b.health.SetDeviceCount(len(b.devices))
	if opts.Logger != nil {
		b.health.SetLogger(opts.Logger)
	}

	return b, nil
}

func (b *Bridge) addDevice(dc DeviceConfig) error {
	if _, dup := b.devices[dc.ID]; dup {
		return fmt.Errorf("%w: duplicate device id %q", ErrInvalidConfig, dc.ID)
	}

	md := &managedDevice{cfg: dc}
	devOpts := climate.DeviceOptions{
		Transmitter:  &deviceTransmitter{bridge: b, deviceID: dc.ID},
		OnChange:     func(ch climate.Change) { b.handleChange(ch) },
		OnDiagnostic: b.handleDiagnostic,
	}
	if b.logger != nil {
		devOpts.Logger = b.logger
	}

	if dc.PowerTemplate != "" {
		tmpl, err := expr.Parse(dc.PowerTemplate)
		if err != nil {
			return fmt.Errorf("device %s: %w", dc.ID, err)
		}
		md.power = tmpl
		devOpts.Power = tmpl.Bind(b.states)
		for _, entity := range tmpl.Entities() {
			b.powerDeps[entity] = append(b.powerDeps[entity], dc.ID)
		}
	}

	dev, err := climate.NewDevice(b.cfg.ClimateConfig(dc), devOpts)
	if err != nil {
		return err
	}
	md.device = dev
	md.settings = dev.Config()

	if dc.TempSensor != "" {
		b.sensors[dc.TempSensor] = append(b.sensors[dc.TempSensor], dc.ID)
	}

	b.devices[dc.ID] = md
	b.order = append(b.order, dc.ID)
	b.snapshots[dc.ID] = dev.Snapshot()
	return nil
}

// Start restores persisted state, starts the event loop and the sender, and
// subscribes to command and entity topics. If a subscription fails, the
// bridge is stopped again before the error is returned.
func (b *Bridge) Start(ctx context.Context) (err error) {
	if pErr := b.health.PublishStarting(); pErr != nil {
		b.logError("failed to publish starting status", pErr)
	}

	// The loop is not running yet, so devices can be touched directly.
	b.restoreAll(ctx)

	b.wg.Add(2)
	go b.runLoop()
	go b.runSender()
	if b.audit != nil {
		b.writers.Add(1)
		go b.runAudit()
	}
	if b.persists() {
		b.writers.Add(1)
		go b.runPersist()
	}
	b.running.Store(true)

	var subscribed []string
	defer func() {
		if err == nil {
			return
		}
		for _, topic := range subscribed {
			if uErr := b.mqtt.Unsubscribe(topic); uErr != nil {
				b.logError("failed to unsubscribe", uErr, "topic", topic)
			}
		}
		b.Stop()
	}()

	if (b.history != nil || b.audit != nil) && b.retention > 0 {
		b.pruneHistory(ctx)
		b.wg.Add(1)
		go b.pruneLoop()
	}

	commandTopic := mqtt.Topics{}.AllClimateCommands()
	if sErr := b.mqtt.Subscribe(commandTopic, 1, b.handleCommandMessage); sErr != nil {
		return fmt.Errorf("subscribe to commands: %w", sErr)
	}
	subscribed = append(subscribed, commandTopic)
	b.logInfo("subscribed to commands", "topic", commandTopic)

	for _, entity := range b.Entities() {
		topic := mqtt.Topics{}.EntityState(entity)
		if sErr := b.mqtt.Subscribe(topic, 1, b.handleEntityMessage); sErr != nil {
			return fmt.Errorf("subscribe to entity %s: %w", entity, sErr)
		}
		subscribed = append(subscribed, topic)
	}

	b.health.Start(ctx)
	if pErr := b.health.PublishNow(); pErr != nil {
		b.logError("failed to publish healthy status", pErr)
	}

	b.logInfo("bridge started",
		"bridge_id", b.cfg.Bridge.ID,
		"devices", len(b.devices),
		"transmitter", b.sender.Kind())
	return nil
}

// Stop shuts the bridge down. Queued transmissions are dropped; queued state
// saves and audit entries are written first.
func (b *Bridge) Stop() {
	b.stopOnce.Do(func() {
		b.running.Store(false)
		close(b.done)
		b.ctxCancel()

		b.health.Stop()
		b.wg.Wait()
		close(b.flush)
		b.writers.Wait()

		if err := b.sender.Close(); err != nil {
			b.logError("failed to close sender", err)
		}
		b.logInfo("bridge stopped")
	})
}

func (b *Bridge) restoreAll(ctx context.Context) {
	for _, id := range b.order {
		md := b.devices[id]
		if b.repo == nil {
			b.publishState(md.device.Snapshot(), climate.ReasonRestore)
			continue
		}

		loadCtx, cancel := context.WithTimeout(ctx, persistTimeout)
		attrs, err := b.repo.Load(loadCtx, id)
		cancel()

		switch {
		case errors.Is(err, climate.ErrNotFound):
			b.logDebug("no persisted state", "device_id", id)
			b.publishState(md.device.Snapshot(), climate.ReasonRestore)
		case err != nil:
			b.logError("failed to load persisted state", err, "device_id", id)
			b.publishState(md.device.Snapshot(), climate.ReasonRestore)
		case len(attrs) == 0:
			b.publishState(md.device.Snapshot(), climate.ReasonRestore)
		default:
			md.device.Restore(attrs)
		}
	}
}

func (b *Bridge) runLoop() {
	defer b.wg.Done()
	for {
		select {
		case <-b.done:
			return
		case fn := <-b.events:
			fn()
		}
	}
}

// submit queues fn on the event loop.
func (b *Bridge) submit(ctx context.Context, fn func()) error {
	if !b.running.Load() {
		return ErrNotRunning
	}
	select {
	case b.events <- fn:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-b.done:
		return ErrNotRunning
	}
}

// Execute validates cmd, runs it on deviceID and returns the resulting
// snapshot.
//
// A command still waiting in the event queue when ctx ends or the bridge
// stops is dropped and never reaches the device. One the loop has already
// started is reported as executed, whatever happened to ctx meanwhile.
func (b *Bridge) Execute(ctx context.Context, deviceID string, cmd CommandMessage) (snap climate.Snapshot, err error) {
	defer func() { b.recordCommand(deviceID, cmd, err) }()

	md, ok := b.devices[deviceID]
	if !ok {
		return climate.Snapshot{}, fmt.Errorf("%w: %s", ErrDeviceNotFound, deviceID)
	}

	act, err := buildAction(md.settings, cmd)
	if err != nil {
		return climate.Snapshot{}, err
	}

	b.commandsReceived.Add(1)
	b.logInfo("executing command",
		"command_id", cmd.ID,
		"device_id", deviceID,
		"command", cmd.Command,
		"source", cmd.Source)

	// Whoever flips claimed first decides: the loop runs the command, or the
	// caller abandons it.
	var claimed atomic.Bool
	result := make(chan climate.Snapshot, 1)
	if err = b.submit(ctx, func() {
		if !claimed.CompareAndSwap(false, true) {
			return
		}
		act(md.device)
		result <- md.device.Snapshot()
	}); err != nil {
		return climate.Snapshot{}, err
	}

	select {
	case s := <-result:
		return s, nil
	case <-ctx.Done():
		err = ctx.Err()
	case <-b.done:
		err = ErrNotRunning
	}
	if claimed.CompareAndSwap(false, true) {
		b.logWarn("command abandoned before it ran",
			"command_id", cmd.ID, "device_id", deviceID, "error", err)
		return climate.Snapshot{}, err
	}
	return <-result, nil
}

// recordCommand queues the audit entry of one command. Entries beyond the
// queue capacity are dropped.
func (b *Bridge) recordCommand(deviceID string, cmd CommandMessage, err error) {
	if b.audit == nil {
		return
	}

	e := &audit.Entry{
		DeviceID:   deviceID,
		Command:    cmd.Command,
		CommandID:  cmd.ID,
		Source:     cmd.Source,
		Result:     audit.ResultAccepted,
		Parameters: cmd.Parameters,
	}
	if e.Source == "" {
		e.Source = sourceUnknown
	}
	if err != nil {
		e.Result = audit.ResultRejected
		e.Error = err.Error()
	}

	select {
	case b.auditCh <- e:
	default:
		b.logWarn("audit queue full, dropping entry", "device_id", deviceID, "command", cmd.Command)
	}
}

// runAudit writes queued audit entries serially until the loop has stopped,
// then drains what is left.
func (b *Bridge) runAudit() {
	defer b.writers.Done()

	for {
		select {
		case e := <-b.auditCh:
			b.writeAudit(e)
		case <-b.flush:
			for {
				select {
				case e := <-b.auditCh:
					b.writeAudit(e)
				default:
					return
				}
			}
		}
	}
}

func (b *Bridge) writeAudit(e *audit.Entry) {
	// Not b.ctx: entries drained during shutdown must still be written.
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := b.audit.Create(ctx, e); err != nil {
		b.logError("failed to record command", err, "device_id", e.DeviceID, "command", e.Command)
	}
}

func (b *Bridge) persists() bool {
	return b.repo != nil || b.history != nil
}

// runPersist saves queued state changes serially until the loop has stopped,
// then drains what is left.
func (b *Bridge) runPersist() {
	defer b.writers.Done()

	for {
		select {
		case job := <-b.persistCh:
			b.writeState(job)
		case <-b.flush:
			for {
				select {
				case job := <-b.persistCh:
					b.writeState(job)
				default:
					return
				}
			}
		}
	}
}

func (b *Bridge) writeState(job persistJob) {
	snap := job.snap

	if b.repo != nil {
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		if err := b.repo.Save(ctx, snap.ID, snap.Attributes()); err != nil {
			b.logError("failed to persist state", err, "device_id", snap.ID)
		}
		cancel()
	}

	if b.history != nil {
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		if err := b.history.RecordStateChange(ctx, snap.ID, snap, job.reason); err != nil {
			b.logError("failed to record history", err, "device_id", snap.ID)
		}
		cancel()
	}
}

func (b *Bridge) handleCommandMessage(topic string, payload []byte) error {
	deviceID, ok := mqtt.ParseClimateCommand(topic)
	if !ok {
		return fmt.Errorf("invalid command topic: %s", topic)
	}

	var cmd CommandMessage
	if err := json.Unmarshal(payload, &cmd); err != nil {
		b.publishAck(deviceID, CommandMessage{}, fmt.Errorf("%w: %w", ErrInvalidCommand, err))
		return fmt.Errorf("parse command: %w", err)
	}
	cmd.DeviceID = deviceID
	if cmd.Source == "" {
		cmd.Source = sourceMQTT
	}

	ctx, cancel := context.WithTimeout(b.ctx, sendTimeout)
	defer cancel()

	_, err := b.Execute(ctx, deviceID, cmd)
	b.publishAck(deviceID, cmd, err)
	if err != nil {
		b.logWarn("command rejected", "device_id", deviceID, "command", cmd.Command, "error", err)
	}
	return nil
}

func (b *Bridge) publishAck(deviceID string, cmd CommandMessage, err error) {
	ack := AckMessage{
		CommandID: cmd.ID,
		Timestamp: time.Now().UTC(),
		DeviceID:  deviceID,
		Status:    AckAccepted,
		Protocol:  Protocol,
	}
	if err != nil {
		ack.Status = AckFailed
		ack.Error = &AckError{Code: ackCode(err), Message: err.Error()}
	}

	payload, mErr := json.Marshal(ack)
	if mErr != nil {
		b.logError("failed to marshal ack", mErr)
		return
	}
	if pErr := b.mqtt.Publish(mqtt.Topics{}.ClimateAck(deviceID), payload, 1, false); pErr != nil {
		b.logError("failed to publish ack", pErr, "device_id", deviceID)
	}
}

func (b *Bridge) handleEntityMessage(topic string, payload []byte) error {
	entityID, ok := mqtt.ParseEntityState(topic)
	if !ok {
		return fmt.Errorf("invalid entity topic: %s", topic)
	}

	state, ok := ParseEntityState(payload)
	if !ok {
		return nil
	}

	ctx, cancel := context.WithTimeout(b.ctx, sendTimeout)
	defer cancel()
	return b.submit(ctx, func() { b.applyEntityState(entityID, state) })
}

// UpdateEntity feeds an entity state into the bridge as if it had arrived
// over MQTT.
func (b *Bridge) UpdateEntity(ctx context.Context, entityID string, state EntityState) error {
	return b.submit(ctx, func() { b.applyEntityState(entityID, state) })
}

// applyEntityState runs on the event loop.
func (b *Bridge) applyEntityState(entityID string, state EntityState) {
	b.states.Set(entityID, state.State)

	for _, id := range b.sensors[entityID] {
		b.devices[id].device.UpdateTemperature(climate.Reading{
			State: state.State,
			Unit:  state.Attributes.UnitOfMeasurement,
		})
	}
	for _, id := range b.powerDeps[entityID] {
		b.devices[id].device.UpdatePower()
	}
}

// handleChange runs wherever the device runs: the event loop, or Start
// during restore.
func (b *Bridge) handleChange(ch climate.Change) {
	snap := ch.Snapshot
	b.publishState(snap, ch.Reason)

	if b.persists() {
		select {
		case b.persistCh <- persistJob{snap: snap, reason: ch.Reason}:
		default:
			b.logWarn("persist queue full, dropping state", "device_id", snap.ID, "reason", ch.Reason)
		}
	}

	b.metrics.ObserveState(snap.ID, snap.On, snap.Away, snap.TargetTemperature,
		snap.CurrentTemperature, uint32(snap.SupportedFeatures))

	if b.telemetry != nil {
		b.telemetry.WriteClimateState(influxdb.ClimateSample{
			DeviceID:           snap.ID,
			OperationMode:      snap.OperationMode,
			FanMode:            snap.FanMode,
			On:                 snap.On,
			Away:               snap.Away,
			TargetTemperature:  snap.TargetTemperature,
			CurrentTemperature: snap.CurrentTemperature,
			SupportedFeatures:  uint32(snap.SupportedFeatures),
			Reason:             string(ch.Reason),
		})
	}
}

// publishState caches, publishes and broadcasts a snapshot.
func (b *Bridge) publishState(snap climate.Snapshot, reason climate.Reason) {
	b.snapMu.Lock()
	b.snapshots[snap.ID] = snap
	b.snapMu.Unlock()

	msg := b.stateMessage(snap, reason)
	payload, err := json.Marshal(msg)
	if err != nil {
		b.logError("failed to marshal state", err, "device_id", snap.ID)
		return
	}
	if err := b.mqtt.Publish(mqtt.Topics{}.ClimateState(snap.ID), payload, 1, true); err != nil {
		b.logError("failed to publish state", err, "device_id", snap.ID)
	}

	if b.broadcaster != nil {
		b.broadcaster.Broadcast(WSChannelState, msg)
	}
}

func (b *Bridge) handleDiagnostic(deviceID string, err error) {
	var lookup *climate.LookupError
	switch {
	case errors.As(err, &lookup):
		b.lookupMisses.Add(1)
		b.metrics.ObserveLookupMiss(deviceID, lookup.Level.String())
	case errors.Is(err, climate.ErrNoIdleCode):
		b.lookupMisses.Add(1)
		b.metrics.ObserveLookupMiss(deviceID, irtable.KeyIdle)
	case errors.Is(err, climate.ErrPowerEvaluation):
		b.adapterFailures.Add(1)
		b.metrics.ObserveAdapterFailure(deviceID, adapterPower)
	case errors.Is(err, climate.ErrSensorParse), errors.Is(err, climate.ErrUnknownUnit):
		b.adapterFailures.Add(1)
		b.metrics.ObserveAdapterFailure(deviceID, adapterSensor)
	}
}

// deviceTransmitter queues codes of one device for the sender goroutine.
type deviceTransmitter struct {
	bridge   *Bridge
	deviceID string
}

func (t *deviceTransmitter) Transmit(remote string, code irtable.Code) {
	t.bridge.enqueue(NewRemoteCommand(t.deviceID, remote, code))
}

func (b *Bridge) enqueue(cmd RemoteCommand) {
	select {
	case b.outbox <- cmd:
	default:
		b.transmitErrors.Add(1)
		b.metrics.ObserveTransmission(cmd.DeviceID, ErrQueueFull)
		b.logWarn("dropping transmission", "device_id", cmd.DeviceID, "remote", cmd.Remote, "error", ErrQueueFull)
	}
}

func (b *Bridge) runSender() {
	defer b.wg.Done()
	for {
		select {
		case <-b.done:
			return
		case cmd := <-b.outbox:
			b.send(cmd)
		}
	}
}

func (b *Bridge) send(cmd RemoteCommand) {
	ctx, cancel := context.WithTimeout(b.ctx, sendTimeout)
	err := b.sender.Send(ctx, cmd)
	cancel()

	b.transmissions.Add(1)
	b.metrics.ObserveTransmission(cmd.DeviceID, err)

	result := metrics.ResultOK
	if err != nil {
		result = metrics.ResultError
		b.transmitErrors.Add(1)
		b.logError("transmission failed", err, "device_id", cmd.DeviceID, "remote", cmd.Remote)
	} else {
		b.logDebug("transmitted", "device_id", cmd.DeviceID, "remote", cmd.Remote, "command", cmd.Command)
	}

	if b.telemetry != nil {
		b.telemetry.WriteTransmission(cmd.DeviceID, cmd.Remote, result)
	}
}

func (b *Bridge) pruneLoop() {
	defer b.wg.Done()

	ticker := time.NewTicker(pruneInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.done:
			return
		case <-ticker.C:
			b.pruneHistory(b.ctx)
		}
	}
}

func (b *Bridge) pruneHistory(ctx context.Context) {
	pruneCtx, cancel := context.WithTimeout(ctx, persistTimeout)
	defer cancel()

	if b.history != nil {
		n, err := b.history.PruneHistory(pruneCtx, b.retention)
		if err != nil {
			b.logError("failed to prune history", err)
		} else if n > 0 {
			b.logInfo("pruned state history", "entries", n)
		}
	}

	if b.audit != nil {
		n, err := b.audit.Prune(pruneCtx, b.retention)
		if err != nil {
			b.logError("failed to prune command audit", err)
		} else if n > 0 {
			b.logInfo("pruned command audit", "entries", n)
		}
	}
}

func (b *Bridge) stateMessage(snap climate.Snapshot, reason climate.Reason) StateMessage {
	return StateMessage{
		DeviceID:  snap.ID,
		Timestamp: time.Now().UTC(),
		Reason:    reason,
		State:     snap,
		Protocol:  Protocol,
		Address:   b.devices[snap.ID].cfg.Remote,
	}
}

// StateMessages returns the current state of every device as state events,
// for replay to new WebSocket subscribers.
func (b *Bridge) StateMessages() []any {
	snaps := b.Climates()
	out := make([]any, 0, len(snaps))
	for _, snap := range snaps {
		if snap.ID == "" {
			continue
		}
		out = append(out, b.stateMessage(snap, climate.ReasonCurrent))
	}
	return out
}

// Climates returns the latest snapshot of every device in configuration
// order.
func (b *Bridge) Climates() []climate.Snapshot {
	b.snapMu.RLock()
	defer b.snapMu.RUnlock()

	out := make([]climate.Snapshot, 0, len(b.order))
	for _, id := range b.order {
		out = append(out, b.snapshots[id])
	}
	return out
}

// Climate returns the latest snapshot of one device.
func (b *Bridge) Climate(deviceID string) (climate.Snapshot, error) {
	b.snapMu.RLock()
	defer b.snapMu.RUnlock()

	snap, ok := b.snapshots[deviceID]
	if !ok {
		return climate.Snapshot{}, fmt.Errorf("%w: %s", ErrDeviceNotFound, deviceID)
	}
	return snap, nil
}

// History returns recorded state changes of one device, newest first.
func (b *Bridge) History(ctx context.Context, deviceID string, limit int) ([]climate.HistoryEntry, error) {
	if _, ok := b.devices[deviceID]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrDeviceNotFound, deviceID)
	}
	if b.history == nil {
		return []climate.HistoryEntry{}, nil
	}
	return b.history.GetHistory(ctx, deviceID, limit)
}

// Entities returns every entity the bridge listens to, sorted.
func (b *Bridge) Entities() []string {
	seen := make(map[string]bool, len(b.sensors)+len(b.powerDeps))
	for e := range b.sensors {
		seen[e] = true
	}
	for e := range b.powerDeps {
		seen[e] = true
	}
	return slices.Sorted(maps.Keys(seen))
}

// DeviceCount returns the number of managed devices.
func (b *Bridge) DeviceCount() int {
	return len(b.devices)
}

// IsRunning reports whether the bridge accepts commands.
func (b *Bridge) IsRunning() bool {
	return b.running.Load()
}

// Stats returns the operational counters.
func (b *Bridge) Stats() BridgeStatistics {
	return BridgeStatistics{
		CommandsReceived: b.commandsReceived.Load(),
		Transmissions:    b.transmissions.Load(),
		TransmitErrors:   b.transmitErrors.Load(),
		LookupMisses:     b.lookupMisses.Load(),
		AdapterFailures:  b.adapterFailures.Load(),
	}
}

func (b *Bridge) logInfo(msg string, keysAndValues ...any) {
	if b.logger != nil {
		b.logger.Info(msg, keysAndValues...)
	}
}

func (b *Bridge) logDebug(msg string, keysAndValues ...any) {
	if b.logger != nil {
		b.logger.Debug(msg, keysAndValues...)
	}
}

func (b *Bridge) logWarn(msg string, keysAndValues ...any) {
	if b.logger != nil {
		b.logger.Warn(msg, keysAndValues...)
	}
}

func (b *Bridge) logError(msg string, err error, keysAndValues ...any) {
	if b.logger != nil {
		b.logger.Error(msg, append([]any{"error", err}, keysAndValues...)...)
	}
}
