// SPDX-License-Identifier: GPL-2.0-or-later

// Package keycode names the key numbers used by key bindings. Printable
// keys are their ASCII value.
package keycode

import "strconv"

type KeyCode int

const (
	TAB           KeyCode = 9
	ENTER                 = 13
	ESCAPE                = 27
	SPACE                 = 32
	BACKSPACE             = 127
	UPARROW               = 128
	DOWNARROW             = 129
	LEFTARROW             = 130
	RIGHTARROW            = 131
	ALT                   = 132
	CTRL                  = 133
	SHIFT                 = 134
	F1                    = 135
	F2                    = 136
	F3                    = 137
	F4                    = 138
	F5                    = 139
	F6                    = 140
	F7                    = 141
	F8                    = 142
	F9                    = 143
	F10                   = 144
	F11                   = 145
	F12                   = 146
	INS                   = 147
	DEL                   = 148
	PGDN                  = 149
	PGUP                  = 150
	HOME                  = 151
	END                   = 152
	KP_HOME               = 160
	KP_UPARROW            = 161
	KP_PGUP               = 162
	KP_LEFTARROW          = 163
	KP_5                  = 164
	KP_RIGHTARROW         = 165
	KP_END                = 166
	KP_DOWNARROW          = 167
	KP_PGDN               = 168
	KP_ENTER              = 169
	KP_INS                = 170
	KP_DEL                = 171
	KP_SLASH              = 172
	KP_MINUS              = 173
	KP_PLUS               = 174
	MOUSE1                = 200
	MOUSE2                = 201
	MOUSE3                = 202
	JOY1                  = 203
	JOY2                  = 204
	JOY3                  = 205
	JOY4                  = 206
	AUX1                  = 207
	AUX2                  = 208
	AUX3                  = 209
	AUX4                  = 210
	AUX5                  = 211
	AUX6                  = 212
	AUX7                  = 213
	AUX8                  = 214
	AUX9                  = 215
	AUX10                 = 216
	AUX11                 = 217
	AUX12                 = 218
	AUX13                 = 219
	AUX14                 = 220
	AUX15                 = 221
	AUX16                 = 222
	AUX17                 = 223
	AUX18                 = 224
	AUX19                 = 225
	AUX20                 = 226
	AUX21                 = 227
	AUX22                 = 228
	AUX23                 = 229
	AUX24                 = 230
	AUX25                 = 231
	AUX26                 = 232
	AUX27                 = 233
	AUX28                 = 234
	AUX29                 = 235
	AUX30                 = 236
	AUX31                 = 237
	AUX32                 = 238
	MWHEELDOWN            = 239
	MWHEELUP              = 240
	PAUSE                 = 255

	// NumKeys bounds all key numbers
	NumKeys = 256
)

var (
	s2k = map[string]KeyCode{
		"TAB":           TAB,
		"ENTER":         ENTER,
		"ESCAPE":        ESCAPE,
		"SPACE":         SPACE,
		"BACKSPACE":     BACKSPACE,
		"UPARROW":       UPARROW,
		"DOWNARROW":     DOWNARROW,
		"LEFTARROW":     LEFTARROW,
		"RIGHTARROW":    RIGHTARROW,
		"ALT":           ALT,
		"CTRL":          CTRL,
		"SHIFT":         SHIFT,
		"F1":            F1,
		"F2":            F2,
		"F3":            F3,
		"F4":            F4,
		"F5":            F5,
		"F6":            F6,
		"F7":            F7,
		"F8":            F8,
		"F9":            F9,
		"F10":           F10,
		"F11":           F11,
		"F12":           F12,
		"INS":           INS,
		"DEL":           DEL,
		"PGDN":          PGDN,
		"PGUP":          PGUP,
		"HOME":          HOME,
		"END":           END,
		"KP_HOME":       KP_HOME,
		"KP_UPARROW":    KP_UPARROW,
		"KP_PGUP":       KP_PGUP,
		"KP_LEFTARROW":  KP_LEFTARROW,
		"KP_5":          KP_5,
		"KP_RIGHTARROW": KP_RIGHTARROW,
		"KP_END":        KP_END,
		"KP_DOWNARROW":  KP_DOWNARROW,
		"KP_PGDN":       KP_PGDN,
		"KP_ENTER":      KP_ENTER,
		"KP_INS":        KP_INS,
		"KP_DEL":        KP_DEL,
		"KP_SLASH":      KP_SLASH,
		"KP_MINUS":      KP_MINUS,
		"KP_PLUS":       KP_PLUS,
		"MOUSE1":        MOUSE1,
		"MOUSE2":        MOUSE2,
		"MOUSE3":        MOUSE3,
		"JOY1":          JOY1,
		"JOY2":          JOY2,
		"JOY3":          JOY3,
		"JOY4":          JOY4,
		"AUX1":          AUX1,
		"AUX2":          AUX2,
		"AUX3":          AUX3,
		"AUX4":          AUX4,
		"AUX5":          AUX5,
		"AUX6":          AUX6,
		"AUX7":          AUX7,
		"AUX8":          AUX8,
		"AUX9":          AUX9,
		"AUX10":         AUX10,
		"AUX11":         AUX11,
		"AUX12":         AUX12,
		"AUX13":         AUX13,
		"AUX14":         AUX14,
		"AUX15":         AUX15,
		"AUX16":         AUX16,
		"AUX17":         AUX17,
		"AUX18":         AUX18,
		"AUX19":         AUX19,
		"AUX20":         AUX20,
		"AUX21":         AUX21,
		"AUX22":         AUX22,
		"AUX23":         AUX23,
		"AUX24":         AUX24,
		"AUX25":         AUX25,
		"AUX26":         AUX26,
		"AUX27":         AUX27,
		"AUX28":         AUX28,
		"AUX29":         AUX29,
		"AUX30":         AUX30,
		"AUX31":         AUX31,
		"AUX32":         AUX32,
		"MWHEELDOWN":    MWHEELDOWN,
		"MWHEELUP":      MWHEELUP,
		"PAUSE":         PAUSE,

		"SEMICOLON": ';', // because a raw semicolon separates commands
	}
	k2s = reverseMap(s2k)
)

func reverseMap(m map[string]KeyCode) map[KeyCode]string {
	r := make(map[KeyCode]string)
	for k, v := range m {
		r[v] = k
	}
	return r
}

// KeyToString returns the name of k as used by bind.
func KeyToString(k KeyCode) string {
	if k == -1 {
		return "<KEY NOT FOUND>"
	}
	if k == ';' {
		return "SEMICOLON"
	}
	if k > 32 && k < 127 {
		return string(rune(k))
	}
	if s, ok := k2s[k]; ok {
		return s
	}
	return "<UNKNOWN KEYNUM>"
}

// StringToKey returns the key named s, a single character or a key name,
// or -1. Names may also be given as "#" followed by the key number.
func StringToKey(s string) KeyCode {
	if len(s) == 0 {
		return -1
	}
	if len(s) == 1 {
		return KeyCode(s[0])
	}
	if s[0] == '#' {
		n, err := strconv.Atoi(s[1:])
		if err != nil || n < 0 || n >= NumKeys {
			return -1
		}
		return KeyCode(n)
	}
	if v, ok := s2k[s]; ok {
		return v
	}
	return -1
}
