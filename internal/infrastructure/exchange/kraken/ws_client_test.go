package kraken

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"

	"marketpulse/internal/domain"
)

const tickerFrame = `[340,{"a":["30001.50000",1,"1.000"],"b":["30000.10000",0,"0.500"],
"c":["30000.20000","0.0100"],"v":["100.5","2500.25"],"p":["30010.1","30020.2"],
"t":[120,3000],"l":["29000.0","28900.0"],"h":["31000.0","31100.0"],"o":["29500.0","29400.0"]},"ticker","XBT/USD"]`

func TestDecodeTicker(t *testing.T) {
	ticks, err := NewDecoder().Decode([]byte(tickerFrame))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(ticks) != 1 {
		t.Fatalf("expected 1 tick, got %d", len(ticks))
	}
	tk := ticks[0]
	if tk.Exchange != "kraken" || tk.Product != "XBT/USD" {
		t.Fatalf("key = %s/%s", tk.Exchange, tk.Product)
	}
	if tk.Ask != 30001.5 || tk.Bid != 30000.1 || tk.Volume != 2500.25 {
		t.Fatalf("values = %+v", tk)
	}
}

func TestDecodeIgnoresNonTicker(t *testing.T) {
	for _, frame := range []string{
		`{"event":"heartbeat"}`,
		`{"event":"systemStatus","status":"online","version":"1.9.0"}`,
		`{"channelID":340,"event":"subscriptionStatus","pair":"XBT/USD","status":"subscribed"}`,
		`[340,{"a":["1",1,"1"]},"ticker"]`,
		`[341,[["5541.2","0.15","1534614057.3","s","l",""]],"trade","XBT/USD"]`,
		`[342,{"as":[["5541.3","2.5","1534614248.1"]]},"book-10","XBT/USD"]`,
	} {
		ticks, err := NewDecoder().Decode([]byte(frame))
		if err != nil || len(ticks) != 0 {
			t.Errorf("frame %s: ticks=%v err=%v", frame, ticks, err)
		}
	}
}

func TestDecodeMalformed(t *testing.T) {
	for _, frame := range []string{
		`[340,{"a":["1",1,"1"],"b":["1",1,"1"],"v":["1"]},"ticker","XBT/USD"]`,
		`[340,{"a":[],"b":["1"],"v":["1","2"]},"ticker","XBT/USD"]`,
		`[340,{"a":["x"],"b":["1"],"v":["1","2"]},"ticker","XBT/USD"]`,
		`[340,{"a":["1"],"b":["1"],"v":["1","2"]},"ticker",7]`,
		`[340, {`,
	} {
		_, err := NewDecoder().Decode([]byte(frame))
		if !errors.Is(err, domain.ErrDecode) {
			t.Errorf("frame %s: expected ErrDecode, got %v", frame, err)
		}
	}
}

func TestDecodeRejectsUnstorableQuotes(t *testing.T) {
	frames := []string{
		`[1,{"a":["NaN",1,"1"],"b":["9",1,"1"],"v":["5","6"]},"ticker","XBT/USD"]`,
		`[1,{"a":["10",1,"1"],"b":["+Inf",1,"1"],"v":["5","6"]},"ticker","XBT/USD"]`,
		`[1,{"a":["10",1,"1"],"b":["-9",1,"1"],"v":["5","6"]},"ticker","XBT/USD"]`,
		`[1,{"a":["10",1,"1"],"b":["9",1,"1"],"v":["5","-6"]},"ticker","XBT/USD"]`,
	}
	for _, frame := range frames {
		ticks, err := NewDecoder().Decode([]byte(frame))
		if !errors.Is(err, domain.ErrDecode) {
			t.Errorf("frame %s: expected ErrDecode, got ticks=%+v err=%v", frame, ticks, err)
		}
	}
}

func TestSubscribeMessage(t *testing.T) {
	b, err := NewDecoder().SubscribeMessage([]string{"XBT/USD", "ETH/USD"}, "")
	if err != nil {
		t.Fatal(err)
	}
	var got map[string]any
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatal(err)
	}
	want := map[string]any{
		"event":        "subscribe",
		"pair":         []any{"XBT/USD", "ETH/USD"},
		"subscription": map[string]any{"name": "ticker"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("payload = %s", b)
	}
}
