package behavior

// builtinZMK is the base behavior table every profile starts from, lifted
// from ZMK's dt-bindings headers. &none and &trans are always present per
// spec §4.2.
var builtinZMK = []Entry{
	{Code: "&none", DisplayName: "None", Origin: OriginZMK, Params: nil},
	{Code: "&trans", DisplayName: "Transparent", Origin: OriginZMK, Params: nil},
	{
		Code: "&kp", DisplayName: "Key Press", Origin: OriginZMK,
		Includes: []string{"dt-bindings/zmk/keys.h"},
		Params:   []ParamSpec{{Name: "keycode", Kind: "string"}},
	},
	{
		Code: "&mo", DisplayName: "Momentary Layer", Origin: OriginZMK,
		Params: []ParamSpec{{Name: "layer", Kind: "int"}},
	},
	{
		Code: "&to", DisplayName: "To Layer", Origin: OriginZMK,
		Params: []ParamSpec{{Name: "layer", Kind: "int"}},
	},
	{
		Code: "&tog", DisplayName: "Toggle Layer", Origin: OriginZMK,
		Params: []ParamSpec{{Name: "layer", Kind: "int"}},
	},
	{
		Code: "&sl", DisplayName: "Sticky Layer", Origin: OriginZMK,
		Params: []ParamSpec{{Name: "layer", Kind: "int"}},
	},
	{
		Code: "&sk", DisplayName: "Sticky Key", Origin: OriginZMK,
		Includes: []string{"dt-bindings/zmk/keys.h"},
		Params:   []ParamSpec{{Name: "keycode", Kind: "string"}},
	},
	{
		Code: "&bt", DisplayName: "Bluetooth", Origin: OriginZMK,
		Includes: []string{"dt-bindings/zmk/bt.h"},
		Params:   []ParamSpec{{Name: "cmd", Kind: "string"}, {Name: "param", Kind: "int", Optional: true}},
	},
	{
		Code: "&out", DisplayName: "Output Selector", Origin: OriginZMK,
		Includes: []string{"dt-bindings/zmk/outputs.h"},
		Params:   []ParamSpec{{Name: "cmd", Kind: "string"}},
	},
	{
		Code: "&rgb_ug", DisplayName: "RGB Underglow", Origin: OriginZMK,
		Includes: []string{"dt-bindings/zmk/rgb.h"},
		Params:   []ParamSpec{{Name: "cmd", Kind: "string"}},
	},
	{
		Code: "&bl", DisplayName: "Backlight", Origin: OriginZMK,
		Includes: []string{"dt-bindings/zmk/backlight.h"},
		Params:   []ParamSpec{{Name: "cmd", Kind: "string"}},
	},
	{
		Code: "&ext_power", DisplayName: "External Power", Origin: OriginZMK,
		Params: []ParamSpec{{Name: "cmd", Kind: "string"}},
	},
	{Code: "&caps_word", DisplayName: "Caps Word", Origin: OriginZMK},
	{Code: "&key_repeat", DisplayName: "Key Repeat", Origin: OriginZMK},
	{Code: "&gresc", DisplayName: "Grave Escape", Origin: OriginZMK},
	{Code: "&bootloader", DisplayName: "Bootloader", Origin: OriginZMK},
	{Code: "&sys_reset", DisplayName: "System Reset", Origin: OriginZMK},
	{Code: "&studio_unlock", DisplayName: "Studio Unlock", Origin: OriginZMK},
	{
		Code: "&mkp", DisplayName: "Mouse Key Press", Origin: OriginZMK,
		Includes: []string{"dt-bindings/zmk/mouse.h"},
		Params:   []ParamSpec{{Name: "button", Kind: "string"}},
	},
	{
		Code: "&mmv", DisplayName: "Mouse Move", Origin: OriginZMK,
		Includes: []string{"dt-bindings/zmk/mouse.h"},
		Params:   []ParamSpec{{Name: "move", Kind: "string"}},
	},
	{
		Code: "&msc", DisplayName: "Mouse Scroll", Origin: OriginZMK,
		Includes: []string{"dt-bindings/zmk/mouse.h"},
		Params:   []ParamSpec{{Name: "scroll", Kind: "string"}},
	},
	{
		Code: "&macro_tap", DisplayName: "Macro Tap Operator", Origin: OriginZMK,
		Params: []ParamSpec{{Name: "binding", Kind: "binding"}},
	},
	{
		Code: "&macro_press", DisplayName: "Macro Press Operator", Origin: OriginZMK,
		Params: []ParamSpec{{Name: "binding", Kind: "binding"}},
	},
	{
		Code: "&macro_release", DisplayName: "Macro Release Operator", Origin: OriginZMK,
		Params: []ParamSpec{{Name: "binding", Kind: "binding"}},
	},
	{Code: "&macro_pause_for_release", DisplayName: "Macro Pause For Release", Origin: OriginZMK},
}

// BuiltinZMK returns a fresh copy of the base ZMK behavior table so callers
// can't mutate the package-level default.
func BuiltinZMK() []Entry {
	out := make([]Entry, len(builtinZMK))
	copy(out, builtinZMK)
	return out
}
