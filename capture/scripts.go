package capture

// Page-side scripts. Each returns a small JSON value; the core never
// receives DOM handles. Scripts must be resilient: wrapped in try/catch and
// returning a conservative default, because a throwing probe is treated as
// "not ready", not as an error.

// censusScript counts the signals behind the meaningfulness decision.
const censusScript = `() => {
	try {
		const body = document.body;
		if (!body) return { nodes: 0, textLen: 0, interactive: 0, media: 0, headings: 0 };
		return {
			nodes: body.getElementsByTagName('*').length,
			textLen: (body.innerText || '').length,
			interactive: body.querySelectorAll('a,button,input,select,textarea,[role=button]').length,
			media: body.querySelectorAll('img,video,canvas,svg,picture').length,
			headings: body.querySelectorAll('h1,h2,h3').length
		};
	} catch (e) {
		return { nodes: 0, textLen: 0, interactive: 0, media: 0, headings: 0 };
	}
}`

// settleSampleScript installs a mutation-idle probe on first use (idempotent)
// and reports the stability sample.
const settleSampleScript = `() => {
	try {
		if (!window.__sdIdle) {
			window.__sdIdle = { last: Date.now() };
			new MutationObserver(() => { window.__sdIdle.last = Date.now(); })
				.observe(document.documentElement, { childList: true, attributes: true, characterData: true, subtree: true });
		}
		const body = document.body;
		const imgs = body ? Array.from(body.querySelectorAll('img')) : [];
		const loaded = imgs.filter(i => i.complete && i.naturalWidth > 0).length;
		return {
			ready: document.readyState !== 'loading',
			nodes: body ? body.getElementsByTagName('*').length : 0,
			textLen: body ? (body.innerText || '').length : 0,
			media: body ? body.querySelectorAll('img,video,canvas,svg,picture').length : 0,
			imagesTotal: imgs.length,
			imagesLoaded: loaded,
			mutationIdleMs: Date.now() - window.__sdIdle.last
		};
	} catch (e) {
		return { ready: false, nodes: 0, textLen: 0, media: 0, imagesTotal: 0, imagesLoaded: 0, mutationIdleMs: 0 };
	}
}`

// consentScript is the generic consent/cookie pass: click known accept
// affordances in the document, same-origin frames, and open shadow roots;
// fall back to hiding overlay-like fixed elements with cookie vocabulary.
const consentScript = `() => {
	const ACCEPT = /^(accept|agree|allow|ok|got it|j'accepte|tout accepter|accepter|alles akzeptieren|akzeptieren|aceptar|accetta|i understand|continue|consent)/i;
	const VOCAB = /(cookie|consent|gdpr|rgpd|privacy|tracking|donn[ée]es personnelles)/i;
	let clicked = 0, hidden = 0;

	const clickables = (root) => {
		const out = [];
		try {
			out.push(...root.querySelectorAll('button, [role=button], input[type=button], input[type=submit], a'));
			for (const el of root.querySelectorAll('*')) {
				if (el.shadowRoot) out.push(...clickables(el.shadowRoot));
			}
		} catch (e) {}
		return out;
	};

	const tryClick = (root) => {
		for (const el of clickables(root)) {
			const label = ((el.innerText || el.value || '') + ' ' + (el.getAttribute('aria-label') || '')).trim();
			if (label && ACCEPT.test(label) && el.offsetParent !== null) {
				try { el.click(); clicked++; } catch (e) {}
			}
		}
	};

	tryClick(document);
	for (const frame of document.querySelectorAll('iframe')) {
		try {
			if (frame.contentDocument) tryClick(frame.contentDocument);
		} catch (e) {} // cross-origin
	}

	// Fallback: hide overlay-like elements that smell of cookie context.
	const vw = window.innerWidth, vh = window.innerHeight;
	for (const el of document.body ? document.body.querySelectorAll('div,section,aside,dialog') : []) {
		try {
			const cs = getComputedStyle(el);
			if (cs.position !== 'fixed' && cs.position !== 'sticky') continue;
			const r = el.getBoundingClientRect();
			if (r.width * r.height < vw * vh * 0.08) continue;
			const text = (el.innerText || '') + ' ' + el.className + ' ' + (el.id || '');
			if (VOCAB.test(text)) {
				el.style.setProperty('display', 'none', 'important');
				hidden++;
			}
		} catch (e) {}
	}
	return { clicked: clicked, hidden: hidden };
}`

// consentGatewayScript dismisses full-page consent gateway interstitials
// (transparency-consent walls that replace the whole document).
const consentGatewayScript = `() => {
	let clicked = 0, hidden = 0;
	const SEL = ['.gdpr', '#gdpr-banner', '[class*="consent-gateway"]', '[id*="didomi"]', '[class*="didomi"]', '[class*="cmp-container"]'];
	for (const sel of SEL) {
		for (const el of document.querySelectorAll(sel)) {
			const btn = el.querySelector('button[class*="accept"], button[class*="agree"], .didomi-button-highlight');
			if (btn) { try { btn.click(); clicked++; continue; } catch (e) {} }
			el.style.setProperty('display', 'none', 'important');
			hidden++;
		}
	}
	document.documentElement.style.overflow = '';
	if (document.body) document.body.style.overflow = '';
	return { clicked: clicked, hidden: hidden };
}`

// cookieNoticeScript targets dismissible cookie notice bars and the fixed
// footers some news sites keep after acceptance.
const cookieNoticeScript = `() => {
	let clicked = 0, hidden = 0;
	for (const el of document.querySelectorAll('[id*="cookie"], [class*="cookie"], [data-testid*="cookie"], [id*="CybotCookiebot"], #onetrust-banner-sdk')) {
		const btn = el.querySelector('button[id*="accept"], button[class*="accept"], #onetrust-accept-btn-handler');
		if (btn) { try { btn.click(); clicked++; continue; } catch (e) {} }
		const cs = getComputedStyle(el);
		if (cs.position === 'fixed' || cs.position === 'sticky') {
			el.style.setProperty('display', 'none', 'important');
			hidden++;
		}
	}
	return { clicked: clicked, hidden: hidden };
}`

// adSlotsScript suppresses leftover ad slot containers and overlay promos.
const adSlotsScript = `() => {
	let hidden = 0;
	const SEL = [
		'ytd-display-ad-renderer', 'ytd-promoted-sparkles-web-renderer', '.ytp-ad-module',
		'[id^="google_ads_iframe"]', 'ins.adsbygoogle', '[class*="ad-slot"]', '[data-ad-unit]',
		'[id*="taboola"]', '[class*="outbrain"]'
	];
	for (const sel of SEL) {
		for (const el of document.querySelectorAll(sel)) {
			el.style.setProperty('display', 'none', 'important');
			hidden++;
		}
	}
	return { clicked: 0, hidden: hidden };
}`

// hydrationScript scrolls through the page to trigger lazy hydration, then
// returns to the top.
const hydrationScript = `() => {
	return new Promise((resolve) => {
		const step = Math.max(400, window.innerHeight * 0.8);
		const maxY = Math.max(document.body ? document.body.scrollHeight : 0, 2000);
		let y = 0;
		const tick = () => {
			y += step;
			window.scrollTo(0, y);
			if (y < maxY && y < 12000) {
				setTimeout(tick, 120);
			} else {
				window.scrollTo(0, 0);
				setTimeout(() => resolve(true), 200);
			}
		};
		tick();
	});
}`

// forceVisibleScript makes the normally invisible render surface paint:
// opaque background, visible root, and a forced layout pass. Restore with
// restoreVisibilityScript.
const forceVisibleScript = `() => {
	const d = document.documentElement;
	window.__sdVis = {
		bg: d.style.background,
		vis: d.style.visibility,
		op: d.style.opacity
	};
	d.style.background = '#fff';
	d.style.visibility = 'visible';
	d.style.opacity = '1';
	void d.offsetHeight; // force layout+display
	return true;
}`

const restoreVisibilityScript = `() => {
	const d = document.documentElement;
	const s = window.__sdVis || {};
	d.style.background = s.bg || '';
	d.style.visibility = s.vis || '';
	d.style.opacity = s.op || '';
	delete window.__sdVis;
	return true;
}`

// hostReadyScript looks for article-like containers with sufficient
// cumulative paragraph text and no paywall/gateway markers, falling back to
// overall page text volume. Strict profiles only; purely improves snapshot
// timing.
const hostReadyScript = `() => {
	try {
		const GATE = /(paywall|piano-|subscribe-wall|regwall|consent-gateway|abonn[ée]s?)/i;
		const html = document.documentElement.outerHTML.slice(0, 200000);
		const gated = GATE.test(html);
		let articleText = 0;
		for (const art of document.querySelectorAll('article, main, [itemprop=articleBody], [class*="article-body"]')) {
			for (const p of art.querySelectorAll('p')) {
				articleText += (p.innerText || '').length;
			}
		}
		if (articleText >= 600 && !gated) return true;
		const total = document.body ? (document.body.innerText || '').length : 0;
		return total >= 2500 && !gated;
	} catch (e) {
		return false;
	}
}`

// outerHTMLScript serializes the DOM after the snapshot, for note drafting.
const outerHTMLScript = `() => {
	try {
		return document.documentElement ? document.documentElement.outerHTML : '';
	} catch (e) {
		return '';
	}
}`
