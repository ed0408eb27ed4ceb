package input

import (
	"image"
	"testing"
)

func TestVirtualKey(t *testing.T) {
	tests := []struct {
		name    string
		want    uint16
		wantErr bool
	}{
		{"w", 'W', false},
		{"F", 'F', false},
		{"7", '7', false},
		{"space", 0x20, false},
		{"Key.shift", 0x10, false},
		{"'e'", 'E', false},
		{"f5", 0x74, false},
		{"f12", 0x7B, false},
		{"f5x", 0, true},
		{"f0", 0, true},
		{"nope", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := VirtualKey(tt.name)
			if (err != nil) != tt.wantErr {
				t.Fatalf("VirtualKey(%q) error = %v, wantErr %v", tt.name, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("VirtualKey(%q) = %#x, want %#x", tt.name, got, tt.want)
			}
		})
	}
}

func TestKeyName(t *testing.T) {
	tests := map[uint16]string{
		'A':  "A",
		'9':  "9",
		0x77: "F8",
		0xA1: "SHIFT",
		0x1B: "ESC",
		0x25: "LEFT",
		0xFF: "",
	}
	for vk, want := range tests {
		if got := KeyName(vk); got != want {
			t.Errorf("KeyName(%#x) = %q, want %q", vk, got, want)
		}
	}
}

type recorder struct {
	calls []string
}

func (r *recorder) KeyDown(key string) error { r.calls = append(r.calls, "down:"+key); return nil }
func (r *recorder) KeyUp(key string) error { r.calls = append(r.calls, "up:"+key); return nil }
func (r *recorder) MouseDown(b Button) error { r.calls = append(r.calls, "mdown:"+string(b)); return nil }
func (r *recorder) MouseUp(b Button) error { r.calls = append(r.calls, "mup:"+string(b)); return nil }
func (r *recorder) MoveRelative(dx, dy int) error { r.calls = append(r.calls, "rel"); return nil }
func (r *recorder) MoveAbsolute(x, y int) error {
	r.calls = append(r.calls, "abs:"+image.Pt(x, y).String())
	return nil
}

type offsetWindow struct{}

func (offsetWindow) BringToFront() error { return nil }
func (offsetWindow) ClientToScreen(p image.Point) (image.Point, error) {
	return p.Add(image.Pt(100, 50)), nil
}
func (offsetWindow) Size() (int, int, error) { return 1920, 1080, nil }

func TestClickAt(t *testing.T) {
	r := &recorder{}
	if err := ClickAt(r, offsetWindow{}, image.Pt(10, 20), ButtonLeft); err != nil {
		t.Fatalf("ClickAt failed: %v", err)
	}
	want := []string{"abs:(110,70)", "mdown:left", "mup:left"}
	if len(r.calls) != len(want) {
		t.Fatalf("calls = %v, want %v", r.calls, want)
	}
	for i := range want {
		if r.calls[i] != want[i] {
			t.Errorf("call %d = %q, want %q", i, r.calls[i], want[i])
		}
	}

	r.calls = nil
	if err := Press(r, "f"); err != nil {
		t.Fatalf("Press failed: %v", err)
	}
	if len(r.calls) != 2 || r.calls[0] != "down:f" || r.calls[1] != "up:f" {
		t.Errorf("Press calls = %v", r.calls)
	}
}
