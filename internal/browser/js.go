package browser

import (
	"encoding/json"
	"fmt"
	"strings"
)

// jsString quotes s as a JS string literal.
func jsString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func jsStrings(ss []string) string {
	if ss == nil {
		ss = []string{}
	}
	b, _ := json.Marshal(ss)
	return string(b)
}

// clickByTextJS clicks the first element whose visible text contains one of subs.
// Earlier substrings win over later ones; within a substring, tags are tried in order.
func clickByTextJS(subs []string, tags []string) string {
	lower := make([]string, 0, len(subs))
	for _, s := range subs {
		lower = append(lower, strings.ToLower(s))
	}
	if len(tags) == 0 {
		tags = []string{"button"}
	}
	return fmt.Sprintf(`(() => {
  const subs = %s, tags = %s;
  for (const s of subs) {
    for (const tag of tags) {
      for (const el of document.querySelectorAll(tag)) {
        const txt = (el.innerText || el.textContent || '').trim().toLowerCase();
        if (txt && txt.includes(s) && !el.disabled) { el.click(); return true; }
      }
    }
  }
  return false;
})()`, jsStrings(lower), jsStrings(tags))
}

// clickTestIDJS clicks the first enabled element carrying one of the data-testid values.
func clickTestIDJS(ids ...string) string {
	return fmt.Sprintf(`(() => {
  for (const id of %s) {
    const el = document.querySelector('[data-testid="' + id + '"]');
    if (el && !el.disabled) { el.click(); return true; }
  }
  return false;
})()`, jsStrings(ids))
}

// setValueJS fills an input through the native setter so React-controlled fields see the change.
func setValueJS(selector, value string) string {
	return fmt.Sprintf(`(() => {
  const el = document.querySelector(%s);
  if (!el) return false;
  const proto = el instanceof HTMLTextAreaElement ? HTMLTextAreaElement.prototype : HTMLInputElement.prototype;
  Object.getOwnPropertyDescriptor(proto, 'value').set.call(el, %s);
  el.dispatchEvent(new Event('input', { bubbles: true }));
  el.dispatchEvent(new Event('change', { bubbles: true }));
  return true;
})()`, jsString(selector), jsString(value))
}

// fetchJSONJS issues a same-origin-credentialed GET from the page and reports status and body text.
func fetchJSONJS(url string) string {
	return fmt.Sprintf(`(async () => {
  try {
    const r = await fetch(%s, { credentials: 'include', headers: { accept: 'application/json' } });
    return { status: r.status, body: await r.text() };
  } catch (e) {
    return { status: 0, body: '', error: String(e) };
  }
})()`, jsString(url))
}

func testID(id string) string {
	return `[data-testid="` + id + `"]`
}
