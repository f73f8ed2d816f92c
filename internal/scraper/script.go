package scraper

import (
	"encoding/json"
	"fmt"
)

func jsString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

// clickByTextJS clicks the first visible element matching selector whose
// trimmed text matches pattern (case-insensitive). It evaluates to true when
// something was clicked.
func clickByTextJS(selector, pattern string) string {
	return fmt.Sprintf(`(() => {
  const re = new RegExp(%s, 'i');
  for (const el of document.querySelectorAll(%s)) {
    const text = (el.innerText || el.textContent || '').replace(/\s+/g, ' ').trim();
    if (!text || text.length > 40 || !re.test(text)) continue;
    const box = el.getBoundingClientRect();
    if (box.width === 0 && box.height === 0) continue;
    el.click();
    return true;
  }
  return false;
})()`, jsString(pattern), jsString(selector))
}

// clickMovieJS opens the first card whose text contains one of terms,
// preferring its showtimes or preview button over the card itself.
func clickMovieJS(cardSelector string, terms []string) string {
	b, _ := json.Marshal(terms)
	return fmt.Sprintf(`(() => {
  const terms = %s;
  for (const card of document.querySelectorAll(%s)) {
    const text = (card.textContent || '').toLowerCase();
    if (!terms.some(t => t && text.includes(t))) continue;
    const buttons = Array.from(card.querySelectorAll('button, a'));
    const target = buttons.find(b => /showtime|preview|tickets/i.test(b.textContent || '')) || card;
    target.click();
    return true;
  }
  return false;
})()`, string(b), jsString(cardSelector))
}
