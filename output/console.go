package output

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"

	"github.com/flowrt/flowrt/ids"
	"github.com/flowrt/flowrt/progress"
)

// ConsoleWriter renders progress to a *logrus.Entry, grounded on the
// teacher's common.OutputSplitter-fed logger (telemetry.Logger) — no
// network, no extra process, just structured lines. Byte-limited
// progress is rendered with go-humanize.Bytes so large transfers (S3
// object uploads, container image pulls) print human sizes instead of
// raw counts.
type ConsoleWriter struct {
	log *logrus.Entry
}

var _ Writer = (*ConsoleWriter)(nil)

// NewConsoleWriter returns a ConsoleWriter logging through log.
func NewConsoleWriter(log *logrus.Entry) *ConsoleWriter {
	return &ConsoleWriter{log: log}
}

func (w *ConsoleWriter) CmdBlockStart(interactionType string) error {
	w.log.WithField("interaction", interactionType).Info("cmd block starting")
	return nil
}

func (w *ConsoleWriter) ItemProgress(snap progress.Snapshot) error {
	entry := w.log.WithFields(logrus.Fields{
		"item":   snap.ItemID,
		"status": snap.Status.String(),
		"units":  snap.UnitsCurrent,
	})
	if snap.Limit.Kind == progress.LimitBytes {
		entry = entry.WithField("units_human", humanize.Bytes(snap.UnitsCurrent))
	}
	if snap.Message != nil {
		entry = entry.WithField("message", *snap.Message)
	}
	entry.Debug("item progress")
	return nil
}

func (w *ConsoleWriter) ItemLocationState(itemID ids.ItemId, state any) error {
	w.log.WithFields(logrus.Fields{"item": itemID, "state": fmt.Sprintf("%+v", state)}).Info("item state")
	return nil
}

func (w *ConsoleWriter) ProgressBegin(flow ids.FlowId, blockCount int) error {
	w.log.WithFields(logrus.Fields{"flow": flow, "blocks": blockCount}).Info("execution starting")
	return nil
}

func (w *ConsoleWriter) ProgressEnd(flow ids.FlowId) error {
	w.log.WithField("flow", flow).Info("execution finished")
	return nil
}

func (w *ConsoleWriter) Present(summary Summary) error {
	entry := w.log.WithFields(logrus.Fields{
		"flow":             summary.Flow,
		"complete":         summary.Complete,
		"blocks_processed": summary.BlocksProcessed,
	})
	if len(summary.ItemErrors) > 0 {
		errs := make(logrus.Fields, len(summary.ItemErrors))
		for id, err := range summary.ItemErrors {
			errs[string(id)] = err.Error()
		}
		entry = entry.WithField("item_errors", errs)
	}
	if summary.Complete {
		entry.Info("flow complete")
	} else {
		entry.Warn("flow did not complete")
	}
	return nil
}

func (w *ConsoleWriter) WriteErr(err error) {
	w.log.WithError(err).Warn("output write failed")
}
