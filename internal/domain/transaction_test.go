package domain

import "testing"

func TestCanTransition(t *testing.T) {
	allowed := []struct{ from, to TransactionState }{
		{StateInitiated, StateAuthorized},
		{StateInitiated, StateSettled},
		{StateInitiated, StateFailed},
		{StateAuthorized, StateHeld},
		{StateAuthorized, StateSettled},
		{StateAuthorized, StateFailed},
		{StateHeld, StateSettled},
		{StateHeld, StateFailed},
		{StateSettled, StateRefunded},
		{StateFailed, StateRefunded},
	}
	for _, tc := range allowed {
		if !CanTransition(tc.from, tc.to) {
			t.Errorf("%s -> %s should be allowed", tc.from, tc.to)
		}
	}

	denied := []struct{ from, to TransactionState }{
		{StateAuthorized, StateInitiated},
		{StateHeld, StateAuthorized},
		{StateSettled, StateHeld},
		{StateSettled, StateFailed},
		{StateRefunded, StateSettled},
		{StateRefunded, StateFailed},
		{StateFailed, StateSettled},
		{StateInitiated, StateHeld},
		{StateInitiated, StateRefunded},
	}
	for _, tc := range denied {
		if CanTransition(tc.from, tc.to) {
			t.Errorf("%s -> %s must not be allowed", tc.from, tc.to)
		}
	}
}

func TestIsTerminal(t *testing.T) {
	for _, s := range []TransactionState{StateSettled, StateFailed, StateRefunded} {
		if !IsTerminal(s) {
			t.Errorf("%s should be terminal", s)
		}
	}
	for _, s := range []TransactionState{StateInitiated, StateAuthorized, StateHeld} {
		if IsTerminal(s) {
			t.Errorf("%s should not be terminal", s)
		}
	}
}

func TestMetadataRoundTrip(t *testing.T) {
	raw, err := EncodeMetadata(TicketPurchaseMetadata{
		PaymentType:    TypeTicketPurchase,
		EventID:        "evt-1",
		EventName:      "Cape Town Jazz Night",
		Quantity:       2,
		UnitPriceCents: 10000,
	})
	if err != nil {
		t.Fatalf("EncodeMetadata: %v", err)
	}

	var md TicketPurchaseMetadata
	if err := DecodeMetadata(raw, &md); err != nil {
		t.Fatalf("DecodeMetadata: %v", err)
	}
	if md.EventID != "evt-1" || md.Quantity != 2 || md.UnitPriceCents != 10000 {
		t.Errorf("round trip = %+v", md)
	}

	if err := DecodeMetadata(nil, &md); err == nil {
		t.Error("decoding empty metadata should error")
	}
}
