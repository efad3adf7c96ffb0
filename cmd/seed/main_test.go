package main

import (
	"testing"

	"github.com/jmerrifield20/exitrisk/pkg/ipaddr"
)

func TestObservations_NormalizeUniquely(t *testing.T) {
	seen := make(map[string]string)
	for _, so := range observations {
		obs, err := so.toObservation()
		if err != nil {
			t.Fatalf("toObservation(%q): %v", so.Address, err)
		}
		if canon, _ := ipaddr.Normalize(obs.Address); canon != obs.Address {
			t.Errorf("%q stored as non-canonical %q", so.Address, obs.Address)
		}
		if prev, dup := seen[obs.Address]; dup {
			t.Errorf("%q and %q collide on %q", prev, so.Address, obs.Address)
		}
		seen[obs.Address] = so.Address
	}
}

func TestToObservation_RejectsInvalid(t *testing.T) {
	if _, err := (seedObservation{Address: "not-an-ip"}).toObservation(); err == nil {
		t.Fatal("expected error for invalid seed address")
	}
}
