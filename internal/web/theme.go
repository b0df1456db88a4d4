package web

import "fmt"

// Theme toggle constants shared between the Go model and the generated
// browser script. The stored preference is "light" or "dark"; the document
// root carries the attribute only in light mode, so dark stays the default
// presentation for any other stored value.
const (
	ThemeStorageKey = "theme"
	ThemeLight      = "light"
	ThemeDark       = "dark"
	ThemeAttribute  = "data-theme"
	SunGlyph        = "☀️"
	MoonGlyph       = "\U0001f319"
)

// ThemeState models the document's theme after load or a toggle: the root
// attribute value ("" when absent), the persisted preference, and the
// toggle icon glyph.
type ThemeState struct {
	Attribute string
	Stored    string
	Glyph     string
}

// LoadTheme returns the state the document reaches on page load given the
// persisted preference. Only the exact light sentinel selects light mode.
func LoadTheme(stored string) ThemeState {
	if stored == ThemeLight {
		return ThemeState{Attribute: ThemeLight, Stored: stored, Glyph: SunGlyph}
	}
	return ThemeState{Attribute: "", Stored: stored, Glyph: MoonGlyph}
}

// Toggle flips the theme and persists the new preference.
func (s ThemeState) Toggle() ThemeState {
	if s.Attribute == ThemeLight {
		return ThemeState{Attribute: "", Stored: ThemeDark, Glyph: MoonGlyph}
	}
	return ThemeState{Attribute: ThemeLight, Stored: ThemeLight, Glyph: SunGlyph}
}

// themeScript renders the inline toggle script from the shared constants.
// The script does nothing when the toggle elements are missing from the page.
func themeScript() string {
	return fmt.Sprintf(`(function () {
  var root = document.documentElement;
  var btn = document.getElementById('theme-toggle');
  var icon = document.getElementById('theme-icon');
  if (!btn || !icon) { return; }
  if (localStorage.getItem(%[1]q) === %[2]q) {
    root.setAttribute(%[4]q, %[2]q);
    icon.textContent = %[5]q;
  } else {
    icon.textContent = %[6]q;
  }
  btn.addEventListener('click', function () {
    if (root.getAttribute(%[4]q) === %[2]q) {
      root.removeAttribute(%[4]q);
      localStorage.setItem(%[1]q, %[3]q);
      icon.textContent = %[6]q;
    } else {
      root.setAttribute(%[4]q, %[2]q);
      localStorage.setItem(%[1]q, %[2]q);
      icon.textContent = %[5]q;
    }
  });
})();`, ThemeStorageKey, ThemeLight, ThemeDark, ThemeAttribute, SunGlyph, MoonGlyph)
}
