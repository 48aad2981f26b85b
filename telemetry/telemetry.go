// Package telemetry names the metrics and log attributes shared by the link, the
// server and the client.
package telemetry

import (
	"log/slog"
	"strconv"

	"github.com/hashicorp/go-metrics"
)

var (
	MetricCallCount      = []string{"ev3", "call", "count"}
	MetricCallLatencyMs  = []string{"ev3", "call", "latency", "ms"}
	MetricCallErrorCount = []string{"ev3", "call", "error", "count"}
	MetricFrameInBytes   = []string{"ev3", "frame", "in", "bytes"}
	MetricFrameOutBytes  = []string{"ev3", "frame", "out", "bytes"}
	MetricHeartbeatCount = []string{"ev3", "heartbeat", "out", "count"}
	MetricSessionCount   = []string{"ev3", "session", "count"}
	MetricThrottleWaitMs = []string{"ev3", "throttle", "wait", "ms"}
)

type Label string

var (
	LabelError    Label = "error"
	LabelPath     Label = "path"
	LabelStatus   Label = "status"
	LabelKind     Label = "kind"
	LabelMailbox  Label = "mailbox"
	LabelSeq      Label = "seq"
	LabelPeer     Label = "peer"
	LabelDuration Label = "duration"
	LabelTask     Label = "task"
)

// M builds a metric label.
func (lab Label) M(val string) metrics.Label {
	return metrics.Label{Name: string(lab), Value: val}
}

// L builds a structured log attribute.
func (lab Label) L(val any) slog.Attr {
	return slog.Attr{
		Key:   string(lab),
		Value: slog.AnyValue(val),
	}
}

// StatusClass collapses a status into its class ("2xx", "4xx", "5xx") to keep label cardinality low.
func StatusClass(status int) string {
	return strconv.Itoa(status/100) + "xx"
}
