package manager

import (
	"context"
	"encoding/binary"
	"sync/atomic"
	"testing"

	"mnistd/internal/blobstore"
	"mnistd/internal/loader"
	"mnistd/internal/model"
	"mnistd/internal/tensor"
)

func TestOversizedLayerBlobIsModelUnavailable(t *testing.T) {
	blob := []byte{'M', 'N', 'W', 'T', 1, 0, 1, 1, 0, byte(model.LayerDense)}
	blob = binary.LittleEndian.AppendUint32(blob, 0xFFFFFFFF)
	blob = binary.LittleEndian.AppendUint32(blob, 0xFFFFFFFF)
	mem := blobstore.NewMemoryStore()
	_ = mem.Put(context.Background(), testKey, blob)
	m := newTestManager(t, Config{Store: mem})

	_, err := m.Classify(testCtx(t), "EU", pixels(0))
	if !IsModelUnavailable(err) || !loader.IsDecode(err) {
		t.Fatalf("expected decode failure, got %v", err)
	}
	if snap, _ := m.Snapshot("EU"); snap.State != StateUnloaded {
		t.Fatalf("expected unloaded actor, got %+v", snap)
	}
}

func TestPanickingDecoderLeavesActorUnloaded(t *testing.T) {
	var calls atomic.Int32
	dec := func(b []byte) (*model.Loaded, error) {
		if calls.Add(1) == 1 {
			panic("decoder blew up")
		}
		return model.Decode(b)
	}
	pub := NewMemoryPublisher()
	m := newTestManager(t, Config{Store: memStoreWithWeights(t), Decode: dec, Publisher: pub})

	_, err := m.Classify(testCtx(t), "EU", pixels(1))
	if !IsModelUnavailable(err) || !loader.IsDecode(err) {
		t.Fatalf("expected model unavailable, got %v", err)
	}
	if snap, _ := m.Snapshot("EU"); snap.State != StateUnloaded || snap.Err == "" {
		t.Fatalf("expected unloaded actor with error, got %+v", snap)
	}

	if _, err := m.Classify(testCtx(t), "EU", pixels(1)); err != nil {
		t.Fatalf("retry classify: %v", err)
	}
	if calls.Load() != 2 || pub.Count(EventLoadFailed, "EU") != 1 || pub.Count(EventLoadReady, "EU") != 1 {
		t.Fatalf("expected one failed and one fresh load, decoder calls %d", calls.Load())
	}
}

type panicModel struct{}

func (panicModel) Forward(tensor.Tensor) (tensor.Tensor, error) { panic("forward blew up") }

func TestPanickingForwardAnswersEveryRequest(t *testing.T) {
	dec := func([]byte) (*model.Loaded, error) {
		return &model.Loaded{Model: panicModel{}, Precision: model.PrecisionFloat32}, nil
	}
	m := newTestManager(t, Config{Store: memStoreWithWeights(t), Decode: dec})

	for i := 0; i < 3; i++ {
		_, err := m.Classify(testCtx(t), "EU", pixels(2))
		if err == nil || IsModelUnavailable(err) {
			t.Fatalf("request %d: expected internal error, got %v", i, err)
		}
	}
	if snap, _ := m.Snapshot("EU"); snap.State != StateReady {
		t.Fatalf("actor should survive a panicking forward, got %+v", snap)
	}
}
