package input

import (
	"fmt"
	"strconv"
	"strings"
)

var namedKeys = map[string]uint16{
	"backspace": 0x08,
	"tab":       0x09,
	"enter":     0x0D,
	"return":    0x0D,
	"shift":     0x10,
	"ctrl":      0x11,
	"control":   0x11,
	"alt":       0x12,
	"pause":     0x13,
	"capslock":  0x14,
	"esc":       0x1B,
	"escape":    0x1B,
	"space":     0x20,
	"pageup":    0x21,
	"pagedown":  0x22,
	"end":       0x23,
	"home":      0x24,
	"left":      0x25,
	"up":        0x26,
	"right":     0x27,
	"down":      0x28,
	"insert":    0x2D,
	"delete":    0x2E,
	"lshift":    0xA0,
	"rshift":    0xA1,
	"lctrl":     0xA2,
	"rctrl":     0xA3,
	"lalt":      0xA4,
	"ralt":      0xA5,
}

var canonicalNames = map[uint16]string{
	0x08: "BACKSPACE",
	0x09: "TAB",
	0x0D: "ENTER",
	0x13: "PAUSE",
	0x14: "CAPSLOCK",
	0x1B: "ESC",
	0x20: "SPACE",
	0x21: "PAGEUP",
	0x22: "PAGEDOWN",
	0x23: "END",
	0x24: "HOME",
	0x25: "LEFT",
	0x26: "UP",
	0x27: "RIGHT",
	0x28: "DOWN",
	0x2D: "INSERT",
	0x2E: "DELETE",
}

// VirtualKey maps a recorded key name ("w", "space", "f5", "Key.shift") to a
// Windows virtual-key code.
func VirtualKey(name string) (uint16, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	key = strings.TrimPrefix(key, "key.")
	key = strings.Trim(key, "'")

	if vk, ok := namedKeys[key]; ok {
		return vk, nil
	}

	if len(key) == 1 {
		c := key[0]
		switch {
		case c >= 'a' && c <= 'z':
			return uint16(c - 'a' + 'A'), nil
		case c >= '0' && c <= '9':
			return uint16(c), nil
		}
	}

	// F1-F24
	if len(key) >= 2 && key[0] == 'f' {
		if n, err := strconv.Atoi(key[1:]); err == nil && n >= 1 && n <= 24 {
			return uint16(0x6F + n), nil
		}
	}

	return 0, fmt.Errorf("unknown key %q", name)
}

// KeyName is the inverse of VirtualKey for hotkey polling; it returns the
// canonical upper-case name.
func KeyName(vk uint16) string {
	switch {
	case vk >= 'A' && vk <= 'Z', vk >= '0' && vk <= '9':
		return string(rune(vk))
	case vk >= 0x70 && vk <= 0x87:
		return fmt.Sprintf("F%d", vk-0x6F)
	}
	switch vk {
	case 0x10, 0xA0, 0xA1:
		return "SHIFT"
	case 0x11, 0xA2, 0xA3:
		return "CTRL"
	case 0x12, 0xA4, 0xA5:
		return "ALT"
	}
	if name, ok := canonicalNames[vk]; ok {
		return name
	}
	return ""
}
