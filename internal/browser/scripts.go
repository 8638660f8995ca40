package browser

import (
	"encoding/json"
	"fmt"
)

// The injected scripts below are shared by the protocol and hybrid
// backends (the Playwright backend uses native locators for the early
// cascade strategies and falls back to the same scan script). Every
// builder JSON-encodes caller input so descriptors can never escape
// into script context.

func jsString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

// finder expressions: each evaluates to an Element or null.

func finderSelector(target string) string {
	return fmt.Sprintf(`document.querySelector(%s)`, jsString(target))
}

func finderExactText(text string) string {
	return fmt.Sprintf(`(() => {
		const want = %s.trim();
		const walker = document.createTreeWalker(document.body, NodeFilter.SHOW_ELEMENT);
		let best = null;
		while (walker.nextNode()) {
			const el = walker.currentNode;
			if (el.children.length > 3) continue;
			const text = (el.textContent || '').trim();
			if (text !== want) continue;
			const r = el.getBoundingClientRect();
			if (r.width === 0 && r.height === 0) continue;
			best = el; // deepest match wins
		}
		return best;
	})()`, jsString(text))
}

func finderRole(text string) string {
	return fmt.Sprintf(`(() => {
		const want = %s.trim().toLowerCase();
		const candidates = document.querySelectorAll(
			'[role], button, a[href], input, select, textarea, [tabindex]');
		for (const el of candidates) {
			const name = (el.getAttribute('aria-label') || el.innerText || el.value ||
				el.getAttribute('placeholder') || el.getAttribute('title') || '').trim().toLowerCase();
			if (name !== want) continue;
			const r = el.getBoundingClientRect();
			if (r.width === 0 && r.height === 0) continue;
			return el;
		}
		return null;
	})()`, jsString(text))
}

func finderAttribute(text string) string {
	return fmt.Sprintf(`(() => {
		const want = %s.trim().toLowerCase();
		if (!want) return null;
		const attrs = ['aria-label', 'id', 'name', 'placeholder'];
		for (const el of document.querySelectorAll('*')) {
			for (const a of attrs) {
				const v = el.getAttribute(a);
				if (v && v.toLowerCase().includes(want)) {
					const r = el.getBoundingClientRect();
					if (r.width > 0 || r.height > 0) return el;
				}
			}
		}
		return null;
	})()`, jsString(text))
}

func finderPath(text string) string {
	return fmt.Sprintf(`(() => {
		const want = %s.trim();
		if (!want || want.includes('"')) return null;
		const xp = '//*[contains(normalize-space(.), "' + want + '")]' +
			'[not(.//*[contains(normalize-space(.), "' + want + '")])]';
		const result = document.evaluate(xp, document.body, null,
			XPathResult.FIRST_ORDERED_NODE_TYPE, null);
		return result.singleNodeValue;
	})()`, jsString(text))
}

func finderScan(target string) string {
	return fmt.Sprintf(`(() => {
		const words = %s.toLowerCase().split(/\s+/).filter(w => w.length > 0);
		if (words.length === 0) return null;
		const clickable = document.querySelectorAll(
			'a, button, [role="button"], [role="link"], [role="menuitem"], ' +
			'input[type="submit"], input[type="button"], [onclick], [tabindex]');
		for (const el of clickable) {
			const text = ((el.innerText || el.value || '') + ' ' +
				(el.getAttribute('aria-label') || '')).toLowerCase();
			if (!text.trim()) continue;
			const hits = words.filter(w => text.includes(w)).length;
			if (hits / words.length < 0.5) continue;
			const r = el.getBoundingClientRect();
			if (r.width === 0 && r.height === 0) continue;
			return el;
		}
		return null;
	})()`, jsString(target))
}

// wrappers turning a finder into a concrete operation.

// jsRectOf scrolls the found element into view and returns its viewport
// center as {x, y}, or null.
func jsRectOf(finder string) string {
	return fmt.Sprintf(`(() => {
		const el = %s;
		if (!el) return null;
		el.scrollIntoView({block: 'center', inline: 'center'});
		const r = el.getBoundingClientRect();
		if (r.width === 0 && r.height === 0) return null;
		return {x: r.x + r.width / 2, y: r.y + r.height / 2};
	})()`, finder)
}

// jsFocusAndClear focuses the found element and empties its value,
// dispatching an input event so frameworks notice. Returns true when an
// element was focused.
func jsFocusAndClear(finder string) string {
	return fmt.Sprintf(`(() => {
		const el = %s;
		if (!el) return false;
		el.scrollIntoView({block: 'center', inline: 'center'});
		el.focus();
		if ('value' in el) {
			el.value = '';
			el.dispatchEvent(new Event('input', {bubbles: true}));
		} else if (el.isContentEditable) {
			el.textContent = '';
		}
		return document.activeElement === el;
	})()`, finder)
}

// jsReadValue reads the committed value of the found element.
func jsReadValue(finder string) string {
	return fmt.Sprintf(`(() => {
		const el = %s;
		if (!el) return null;
		if ('value' in el) return el.value;
		return el.textContent;
	})()`, finder)
}

// jsSetValue force-sets the value, the content-fidelity backstop when
// replayed keystrokes drifted from the requested text.
func jsSetValue(finder, text string) string {
	return fmt.Sprintf(`(() => {
		const el = %s;
		if (!el) return false;
		if ('value' in el) {
			el.value = %s;
		} else if (el.isContentEditable) {
			el.textContent = %s;
		} else {
			return false;
		}
		el.dispatchEvent(new Event('input', {bubbles: true}));
		el.dispatchEvent(new Event('change', {bubbles: true}));
		return true;
	})()`, finder, jsString(text), jsString(text))
}

// jsClickOn dispatches a scripted click on the found element. Used by
// the hybrid backend where raw pointer dispatch is not available.
func jsClickOn(finder string) string {
	return fmt.Sprintf(`(() => {
		const el = %s;
		if (!el) return false;
		el.scrollIntoView({block: 'center', inline: 'center'});
		el.click();
		return true;
	})()`, finder)
}

// jsVisible reports whether a cascade target is currently visible, for
// wait-until-visible conditions.
func jsVisible(finder string) string {
	return fmt.Sprintf(`(() => {
		const el = %s;
		if (!el) return false;
		const r = el.getBoundingClientRect();
		const style = window.getComputedStyle(el);
		return r.width > 0 && r.height > 0 &&
			style.visibility !== 'hidden' && style.display !== 'none';
	})()`, finder)
}

// challengeDetectScript looks for obstruction markers (CAPTCHA frames,
// anti-bot interstitials) and returns a short description, or "".
const challengeDetectScript = `(() => {
	const frames = document.querySelectorAll(
		'iframe[src*="captcha"], iframe[src*="challenge"], iframe[title*="challenge" i]');
	if (frames.length > 0) return 'captcha frame present';
	if (document.querySelector('.g-recaptcha, .h-captcha, #challenge-form, #cf-challenge-running')) {
		return 'challenge widget present';
	}
	const title = (document.title || '').toLowerCase();
	if (title.includes('just a moment') || title.includes('attention required') ||
		title.includes('access denied')) {
		return 'interstitial title: ' + document.title;
	}
	return '';
})()`

// extraction scripts.

const extractTextScript = `(() => (document.body && document.body.innerText) || '')()`

const extractLinksScript = `(() => {
	const out = [];
	for (const a of document.querySelectorAll('a[href]')) {
		const text = (a.innerText || '').trim();
		const href = a.href;
		if (!href || href.startsWith('javascript:')) continue;
		out.push({text: text, href: href});
		if (out.length >= 200) break;
	}
	return out;
})()`

const extractFormsScript = `(() => {
	const out = [];
	for (const f of document.querySelectorAll('form')) {
		const fields = [];
		for (const el of f.querySelectorAll('input, select, textarea')) {
			if (el.type === 'hidden') continue;
			fields.push({
				name: el.name || el.id || '',
				type: el.type || el.tagName.toLowerCase(),
				placeholder: el.placeholder || ''
			});
		}
		out.push({action: f.action || '', method: (f.method || 'get').toLowerCase(), fields: fields});
		if (out.length >= 50) break;
	}
	return out;
})()`

// localStorageDumpScript snapshots localStorage for session save files.
const localStorageDumpScript = `(() => {
	const out = {};
	try {
		for (let i = 0; i < localStorage.length; i++) {
			const k = localStorage.key(i);
			if (k) out[k] = localStorage.getItem(k);
		}
	} catch (e) {}
	return out;
})()`

// jsRestoreLocalStorage writes the saved entries back.
func jsRestoreLocalStorage(entries map[string]string) string {
	b, _ := json.Marshal(entries)
	return fmt.Sprintf(`(() => {
		const entries = %s;
		try {
			for (const k of Object.keys(entries)) {
				localStorage.setItem(k, entries[k]);
			}
		} catch (e) { return false; }
		return true;
	})()`, string(b))
}
