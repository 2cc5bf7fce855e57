// SPDX-License-Identifier: MIT
package level

import (
	"math"
	"sync"
	"testing"
)

func TestAdapterStartsAtFloor(t *testing.T) {
	a := NewAdapter()
	if got := a.Load(); got != Floor {
		t.Errorf("Load() = %+v, want %+v", got, Floor)
	}
}

func TestAdapterOverwrites(t *testing.T) {
	a := NewAdapter()
	a.Update(-20, -6)
	a.Update(-30.5, -12.25)

	got := a.Load()
	if got.AveragePowerDB != -30.5 || got.PeakPowerDB != -12.25 {
		t.Errorf("Load() = %+v, want last reading", got)
	}

	a.Reset()
	if got := a.Load(); got != Floor {
		t.Errorf("Load() after Reset = %+v, want Floor", got)
	}
}

func TestAdapterKeepsInfinityAndReplacesNaN(t *testing.T) {
	a := NewAdapter()
	negInf := float32(math.Inf(-1))
	a.Update(negInf, float32(math.NaN()))

	got := a.Load()
	if !math.IsInf(float64(got.AveragePowerDB), -1) {
		t.Errorf("AveragePowerDB = %v, want -Inf unchanged", got.AveragePowerDB)
	}
	if got.PeakPowerDB != MinPowerDB {
		t.Errorf("PeakPowerDB = %v, want floor for NaN", got.PeakPowerDB)
	}
}

func TestAdapterReadingsNeverTear(t *testing.T) {
	a := NewAdapter()
	var wg sync.WaitGroup
	done := make(chan struct{})

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; ; i++ {
			select {
			case <-done:
				return
			default:
			}
			v := float32(-(i % 100))
			a.Update(v, v)
		}
	}()

	for i := 0; i < 10000; i++ {
		s := a.Load()
		if s.AveragePowerDB != s.PeakPowerDB && s != Floor {
			t.Fatalf("torn reading %+v", s)
		}
	}
	close(done)
	wg.Wait()
}
