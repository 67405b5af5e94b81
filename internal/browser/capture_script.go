package browser

import "strings"

const (
	capturedBinding = "__locatorCaptured"
	stateBinding    = "__locatorCaptureState"
)

// captureScript is installed in every frame before page scripts run. The
// highlight only toggles the marker class; the outline comes from an adopted
// stylesheet so no style attribute or <style> element is added to the page.
func captureScript(marker string) string {
	return strings.NewReplacer(
		"__MARKER__", marker,
		"__CAPTURED__", capturedBinding,
		"__STATE__", stateBinding,
	).Replace(`(() => {
	if (window.__locatorCapture || window.top !== window) return;

	const MARKER = '__MARKER__';
	const idle = '.' + MARKER + '{outline:2px solid blue !important;outline-offset:-2px !important}';
	const flash = '.' + MARKER + '{outline:3px solid green !important;outline-offset:-2px !important}';

	let active = false;
	let sheet = null;

	const ensureSheet = () => {
		if (sheet) return;
		try {
			sheet = new CSSStyleSheet();
			sheet.replaceSync(idle);
			document.adoptedStyleSheets = [...document.adoptedStyleSheets, sheet];
		} catch (e) {
			sheet = null;
		}
	};

	const clear = () => {
		document.querySelectorAll('.' + MARKER).forEach(el => {
			el.classList.remove(MARKER);
			if (el.getAttribute('class') === '') el.removeAttribute('class');
		});
	};

	const indexPath = (el) => {
		const path = [];
		while (el && el !== document.documentElement) {
			const parent = el.parentElement;
			if (!parent) return null;
			path.unshift(Array.prototype.indexOf.call(parent.children, el));
			el = parent;
		}
		return el ? path : null;
	};

	const onOver = (event) => {
		if (!active || !(event.target instanceof Element)) return;
		ensureSheet();
		clear();
		event.target.classList.add(MARKER);
	};

	const onClick = (event) => {
		if (!active || !(event.target instanceof Element)) return;
		event.preventDefault();
		event.stopPropagation();

		const el = event.target;
		const path = indexPath(el);
		if (!path) return;

		if (sheet) {
			sheet.replaceSync(flash);
			setTimeout(() => sheet && sheet.replaceSync(idle), 200);
		}

		window.__CAPTURED__({ tag: el.tagName.toLowerCase(), path: path, url: location.href });
	};

	const setActive = (value) => {
		active = !!value;
		if (!active) clear();
		return active;
	};

	document.addEventListener('mouseover', onOver, true);
	document.addEventListener('click', onClick, true);

	window.__locatorCapture = { setActive, clear };

	if (typeof window.__STATE__ === 'function') {
		window.__STATE__().then(setActive).catch(() => {});
	}
})()`)
}
