package hub

import "sync/atomic"

type MetricsSnapshot struct {
	Connections      int64
	MutationsRelayed int64
	ActionsRelayed   int64
	EchoesSuppressed int64
	MessagesReceived int64
	StatesPersisted  int64
}

type Metrics struct {
	connections      atomic.Int64
	mutationsRelayed atomic.Int64
	actionsRelayed   atomic.Int64
	echoesSuppressed atomic.Int64
	messagesReceived atomic.Int64
	statesPersisted  atomic.Int64
}

func NewMetrics() *Metrics {
	return &Metrics{}
}

func (m *Metrics) RecordConnection(delta int) {
	m.connections.Add(int64(delta))
}

func (m *Metrics) RecordMutationRelayed(delta int) {
	m.mutationsRelayed.Add(int64(delta))
}

func (m *Metrics) RecordActionRelayed(delta int) {
	m.actionsRelayed.Add(int64(delta))
}

func (m *Metrics) RecordEchoSuppressed(delta int) {
	m.echoesSuppressed.Add(int64(delta))
}

func (m *Metrics) RecordMessageReceived(delta int) {
	m.messagesReceived.Add(int64(delta))
}

func (m *Metrics) RecordStatePersisted(delta int) {
	m.statesPersisted.Add(int64(delta))
}

func (m *Metrics) Snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		Connections:      m.connections.Load(),
		MutationsRelayed: m.mutationsRelayed.Load(),
		ActionsRelayed:   m.actionsRelayed.Load(),
		EchoesSuppressed: m.echoesSuppressed.Load(),
		MessagesReceived: m.messagesReceived.Load(),
		StatesPersisted:  m.statesPersisted.Load(),
	}
}
