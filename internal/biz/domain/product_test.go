package domain

import (
	"testing"
	"time"
)

func fp(v float64) *float64 { return &v }

func TestProductPrice_IsValid(t *testing.T) {
	valid := ProductPrice{CurrentPrice: fp(150)}
	if !valid.IsValid() {
		t.Error("Expected price with positive current price to be valid")
	}

	missing := ProductPrice{OldPrice: fp(200)}
	if missing.IsValid() {
		t.Error("Expected price without current price to be invalid")
	}

	zero := ProductPrice{CurrentPrice: fp(0)}
	if zero.IsValid() {
		t.Error("Expected zero current price to be invalid")
	}
}

func TestPriceFromPair_OrdersValues(t *testing.T) {
	p := PriceFromPair(fp(200), fp(150))
	if *p.CurrentPrice != 150 || *p.OldPrice != 200 {
		t.Errorf("Expected current=150 old=200, got current=%v old=%v", *p.CurrentPrice, *p.OldPrice)
	}

	single := PriceFromPair(fp(150), nil)
	if *single.CurrentPrice != 150 || single.OldPrice != nil {
		t.Error("Expected single value to stay as current price")
	}
}

func TestProduct_IsValid(t *testing.T) {
	p := Product{
		UniqueID:    MessageUniqueID(42, 7),
		ChannelID:   42,
		MessageID:   7,
		Timestamp:   time.Now(),
		ChannelName: "test",
		Name:        "Blender",
		Images:      []string{"a.jpg"},
		Prices:      ProductPrice{CurrentPrice: fp(150)},
	}
	if !p.IsValid() {
		t.Error("Expected complete product to be valid")
	}

	noImages := p
	noImages.Images = nil
	if noImages.IsValid() {
		t.Error("Expected product without images to be invalid")
	}

	noName := p
	noName.Name = ""
	if noName.IsValid() {
		t.Error("Expected product without name to be invalid")
	}
}

func TestMessageUniqueID_Deterministic(t *testing.T) {
	if MessageUniqueID(42, 7) != "42_7" {
		t.Errorf("Expected 42_7, got %s", MessageUniqueID(42, 7))
	}
	if MessageUniqueID(42, 7) != MessageUniqueID(42, 7) {
		t.Error("Expected identity to be a pure function of its inputs")
	}
}

func TestMessage_HasText(t *testing.T) {
	blank := Message{Text: "  \n\t "}
	if blank.HasText() {
		t.Error("Expected whitespace-only text to count as no text")
	}
	caption := Message{Text: "Blender"}
	if !caption.HasText() {
		t.Error("Expected caption to count as text")
	}
}
