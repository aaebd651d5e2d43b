package db

import (
	"sync"
	"testing"
	"time"
)

func TestAsyncWriterBasicWrite(t *testing.T) {
	var mu sync.Mutex
	var got []any

	writer := NewAsyncWriter(func(op WriteOperation) error {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, op.Data)
		return nil
	})
	writer.Start()

	for i := 0; i < 3; i++ {
		if !writer.Write(i) {
			t.Fatalf("Write(%d) returned false", i)
		}
	}
	if !writer.Close(time.Second) {
		t.Fatal("Close() timed out")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 3 {
		t.Fatalf("handled %d operations, want 3", len(got))
	}
	for i, v := range got {
		if v != i {
			t.Errorf("operation %d = %v, want %d", i, v, i)
		}
	}
}

func TestAsyncWriterChannelFull(t *testing.T) {
	block := make(chan struct{})
	writer := NewAsyncWriterWithConfig(func(op WriteOperation) error {
		<-block
		return nil
	}, AsyncWriterConfig{ChannelCapacity: 2})

	// not started: nothing drains the buffer
	if !writer.Write(1) || !writer.Write(2) {
		t.Fatal("writes within capacity should be queued")
	}
	if writer.Write(3) {
		t.Error("Write() on a full buffer should return false")
	}
	if writer.Pending() != 2 {
		t.Errorf("Pending() = %d, want 2", writer.Pending())
	}

	close(block)
	writer.Close(time.Second)
}

func TestAsyncWriterGracefulDrain(t *testing.T) {
	var mu sync.Mutex
	handled := 0

	writer := NewAsyncWriter(func(op WriteOperation) error {
		time.Sleep(time.Millisecond)
		mu.Lock()
		handled++
		mu.Unlock()
		return nil
	})
	writer.Start()

	for i := 0; i < 20; i++ {
		writer.Write(i)
	}
	if !writer.Close(5 * time.Second) {
		t.Fatal("Close() timed out")
	}

	mu.Lock()
	defer mu.Unlock()
	if handled != 20 {
		t.Errorf("handled = %d, want 20", handled)
	}
}

func TestAsyncWriterWriteAfterClose(t *testing.T) {
	writer := NewAsyncWriter(func(op WriteOperation) error { return nil })
	writer.Start()
	writer.Close(time.Second)

	if writer.Write("late") {
		t.Error("Write() after Close() should return false")
	}
	if writer.IsStarted() {
		t.Error("IsStarted() should be false after Close()")
	}
	if !writer.Close(time.Second) {
		t.Error("second Close() should succeed")
	}
}

func TestAsyncWriterDoubleStart(t *testing.T) {
	var mu sync.Mutex
	handled := 0
	writer := NewAsyncWriter(func(op WriteOperation) error {
		mu.Lock()
		handled++
		mu.Unlock()
		return nil
	})

	writer.Start()
	writer.Start()
	if !writer.IsStarted() {
		t.Fatal("IsStarted() should be true")
	}

	writer.Write("once")
	writer.Close(time.Second)

	mu.Lock()
	defer mu.Unlock()
	if handled != 1 {
		t.Errorf("handled = %d, want 1", handled)
	}
}
