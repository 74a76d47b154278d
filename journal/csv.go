package journal

import (
	"encoding/csv"
	"os"
	"strconv"
	"time"
)

var (
	tradeHeader  = []string{"position_id", "portfolio", "symbol", "side", "size", "open_price", "close_price", "open_time", "close_time", "gain", "commission", "reason", "run_id"}
	equityHeader = []string{"time", "portfolio", "start_value", "cash", "equity", "margin", "nett_gain", "open", "closed", "run_id"}
)

// CSV writes trades and snapshots to two files, flushing after every row.
type CSV struct {
	trades *csv.Writer
	equity *csv.Writer
	tf, ef *os.File
}

func NewCSV(tradesPath, equityPath string) (*CSV, error) {
	tf, err := os.Create(tradesPath)
	if err != nil {
		return nil, err
	}
	ef, err := os.Create(equityPath)
	if err != nil {
		_ = tf.Close()
		return nil, err
	}

	j := &CSV{
		trades: csv.NewWriter(tf),
		equity: csv.NewWriter(ef),
		tf:     tf,
		ef:     ef,
	}
	if err := j.write(j.trades, tradeHeader); err != nil {
		_ = j.Close()
		return nil, err
	}
	if err := j.write(j.equity, equityHeader); err != nil {
		_ = j.Close()
		return nil, err
	}
	return j, nil
}

func (j *CSV) RecordTrade(t TradeRecord) error {
	return j.write(j.trades, []string{
		t.PositionID,
		t.Portfolio,
		t.Symbol,
		t.Side,
		strconv.FormatFloat(t.Size, 'f', -1, 64),
		t.OpenPrice.String(),
		t.ClosePrice.String(),
		t.OpenTime.Format(time.RFC3339),
		t.CloseTime.Format(time.RFC3339),
		t.Gain.String(),
		t.Commission.String(),
		t.Reason,
		t.RunID,
	})
}

func (j *CSV) RecordEquity(e EquitySnapshot) error {
	return j.write(j.equity, []string{
		e.Time.Format(time.RFC3339),
		e.Portfolio,
		e.StartValue.String(),
		e.Cash.String(),
		e.Equity.String(),
		e.Margin.String(),
		e.NettGain.String(),
		strconv.Itoa(e.Open),
		strconv.Itoa(e.Closed),
		e.RunID,
	})
}

func (j *CSV) write(w *csv.Writer, row []string) error {
	if err := w.Write(row); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

func (j *CSV) Close() error {
	j.trades.Flush()
	j.equity.Flush()
	var first error
	for _, err := range []error{j.trades.Error(), j.equity.Error(), j.tf.Close(), j.ef.Close()} {
		if err != nil && first == nil {
			first = err
		}
	}
	return first
}
