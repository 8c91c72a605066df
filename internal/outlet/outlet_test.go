package outlet

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestCoordinate_coercion(t *testing.T) {
	cases := []struct {
		raw  string
		want Coordinate
	}{
		{`-6.2`, -6.2},
		{`"106.8"`, 106.8},
		{`" 12.5 "`, 12.5},
		{`"north"`, 0},
		{`""`, 0},
		{`null`, 0},
		{`true`, 0},
		{`{"x":1}`, 0},
	}
	for _, tc := range cases {
		var c Coordinate
		if err := json.Unmarshal([]byte(tc.raw), &c); err != nil {
			t.Fatalf("unmarshal %s: unexpected error %v", tc.raw, err)
		}
		if c != tc.want {
			t.Fatalf("unmarshal %s: got %v, want %v", tc.raw, c, tc.want)
		}
	}
}

func TestOutlet_decodeFromAPI(t *testing.T) {
	raw := `{"_id":"a1","name":"SPBU 31.1","address":"Jl. Sudirman","lat":"-6.21","long":"abc","fuel":"Pertalite, Pertamax","facility":"Coffee, ATM","code":"X1"}`

	var o Outlet
	if err := json.Unmarshal([]byte(raw), &o); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if o.ID != "a1" || o.Code != "X1" {
		t.Fatalf("unexpected identity: %+v", o)
	}
	if o.Lat != -6.21 || o.Long != 0 {
		t.Fatalf("unexpected coordinates: %v,%v", o.Lat, o.Long)
	}
	if !reflect.DeepEqual(o.Fuels(), []string{"Pertalite", "Pertamax"}) {
		t.Fatalf("unexpected fuels: %v", o.Fuels())
	}
}

func TestOutlet_acceptsPlainID(t *testing.T) {
	var o Outlet
	if err := json.Unmarshal([]byte(`{"id":"b2","name":"x"}`), &o); err != nil {
		t.Fatal(err)
	}
	if o.ID != "b2" {
		t.Fatalf("expected id fallback, got %q", o.ID)
	}
}

func TestOutlet_plottable(t *testing.T) {
	cases := []struct {
		name string
		o    Outlet
		want bool
	}{
		{"origin", Outlet{}, false},
		{"valid", Outlet{Lat: -6.2, Long: 106.8}, true},
		{"lat only", Outlet{Lat: -6.2}, true},
		{"out of mercator range", Outlet{Lat: 89, Long: 10}, false},
		{"bad longitude", Outlet{Lat: 1, Long: 200}, false},
	}
	for _, tc := range cases {
		if got := tc.o.Plottable(); got != tc.want {
			t.Fatalf("%s: got %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestOutlet_directionsURL(t *testing.T) {
	o := Outlet{Lat: -6.2, Long: 106.8}
	if got := o.DirectionsURL(); got != "https://www.google.com/maps/place/-6.2,106.8" {
		t.Fatalf("unexpected url %q", got)
	}
	if got := (Outlet{}).DirectionsURL(); got != "" {
		t.Fatalf("expected no url for unplottable outlet, got %q", got)
	}
}

func TestSplitList(t *testing.T) {
	if got := SplitList("  "); got != nil {
		t.Fatalf("expected nil for blank input, got %v", got)
	}
	got := SplitList(" Coffee ,, ATM ,")
	if !reflect.DeepEqual(got, []string{"Coffee", "ATM"}) {
		t.Fatalf("unexpected split: %v", got)
	}
}

func TestFind(t *testing.T) {
	list := []Outlet{{ID: "a"}, {ID: "b", Name: "B"}}
	o, ok := Find(list, "b")
	if !ok || o.Name != "B" {
		t.Fatalf("expected to find b, got %+v %v", o, ok)
	}
	if _, ok := Find(list, "z"); ok {
		t.Fatalf("expected miss")
	}
}
