package progress

import (
	"errors"
	"fmt"
	"sync"
	"testing"
)

func TestSlot_Lifecycle(t *testing.T) {
	rec := NewRecorder()
	board := NewBoard(rec)

	slot := board.Slot("a-red-fox")
	if err := slot.ReportProgress("🤯 Generating: a-red-fox"); err != nil {
		t.Fatalf("ReportProgress() error = %v", err)
	}
	if err := slot.ReportProgress("💻 Downloading: a-red-fox"); err != nil {
		t.Fatalf("ReportProgress() error = %v", err)
	}
	if err := slot.ReportSuccess("• ./a-red-fox-Ab12x.png"); err != nil {
		t.Fatalf("ReportSuccess() error = %v", err)
	}

	want := []string{"🤯 Generating: a-red-fox", "💻 Downloading: a-red-fox", "• ./a-red-fox-Ab12x.png"}
	got := rec.Messages(0)
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("Messages(0) = %q, want %q", got, want)
	}

	rows := board.Rows()
	if len(rows) != 1 || rows[0].Status != StatusDone || rows[0].Label != "a-red-fox" {
		t.Errorf("Rows() = %+v", rows)
	}
}

func TestSlot_ReportsAfterFinishAreRejected(t *testing.T) {
	board := NewBoard(NewRecorder())
	slot := board.Slot("fox")

	if err := slot.ReportError(errors.New("generate: server returned status 500")); err != nil {
		t.Fatalf("ReportError() error = %v", err)
	}

	for name, report := range map[string]func() error{
		"progress": func() error { return slot.ReportProgress("late") },
		"success":  func() error { return slot.ReportSuccess("late") },
		"error":    func() error { return slot.ReportError(errors.New("late")) },
	} {
		if err := report(); !errors.Is(err, ErrSlotFinished) {
			t.Errorf("%s after finish: error = %v, want ErrSlotFinished", name, err)
		}
	}

	row := board.Rows()[0]
	if row.Status != StatusFailed || row.Message != "generate: server returned status 500" {
		t.Errorf("row = %+v, want the first terminal report", row)
	}
}

func TestBoard_SlotsAreIndependent(t *testing.T) {
	rec := NewRecorder()
	board := NewBoard(rec)

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		slot := board.Slot(fmt.Sprintf("task-%d", i))
		wg.Add(1)
		go func() {
			defer wg.Done()
			slot.ReportProgress("working")
			slot.ReportSuccess("done")
		}()
	}
	wg.Wait()

	rows := board.Rows()
	if len(rows) != n {
		t.Fatalf("got %d rows, want %d", len(rows), n)
	}
	for i, row := range rows {
		if row.Index != i || row.Status != StatusDone {
			t.Errorf("row %d = %+v", i, row)
		}
		if msgs := rec.Messages(i); len(msgs) != 2 {
			t.Errorf("slot %d got %d messages, want 2", i, len(msgs))
		}
	}
}

func TestBoard_StartStop(t *testing.T) {
	rec := NewRecorder()
	board := NewBoard(rec)

	if err := board.Start(); err != nil {
		t.Fatal(err)
	}
	if err := board.Stop(); err != nil {
		t.Fatal(err)
	}
	if !rec.Stopped() {
		t.Error("Stop() did not reach the renderer")
	}
}

func TestStatus(t *testing.T) {
	if StatusPending.Finished() || StatusActive.Finished() {
		t.Error("pending and active are not finished")
	}
	if !StatusDone.Finished() || !StatusFailed.Finished() {
		t.Error("done and failed are finished")
	}
	if StatusFailed.String() != "failed" {
		t.Errorf("String() = %q", StatusFailed.String())
	}
}
