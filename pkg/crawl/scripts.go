package crawl

import (
	"encoding/json"
	"fmt"
)

// sourceScript returns the rendered document
const sourceScript = `document.documentElement.outerHTML`

// jsString quotes s as a JavaScript string literal
func jsString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

// searchScript types the keyword into the search box and submits it
func searchScript(box, submit, keyword string) string {
	return fmt.Sprintf(`(() => {
	const box = document.querySelector(%s);
	const submit = document.querySelector(%s);
	if (!box || !submit) {
		return false;
	}
	box.value = %s;
	submit.click();
	return true;
})()`, jsString(box), jsString(submit), jsString(keyword))
}

// prepareScript captures the result anchors of the current page and builds
// the press-down event dispatched before each click. It returns the number
// of anchors found.
func prepareScript(anchors string) string {
	return fmt.Sprintf(`(() => {
	window.__kwaResults = document.querySelectorAll(%s);
	window.__kwaPress = document.createEvent('HTMLEvents');
	window.__kwaPress.initEvent('mousedown', true, true);
	return window.__kwaResults.length;
})()`, jsString(anchors))
}

// clickScript presses and clicks the anchor at index
func clickScript(index int) string {
	return fmt.Sprintf(`(() => {
	const el = window.__kwaResults && window.__kwaResults[%d];
	if (!el) {
		return false;
	}
	el.dispatchEvent(window.__kwaPress);
	el.click();
	return true;
})()`, index)
}

// nextPageScript returns the address of the pager link whose text contains
// label, or of the last pager link when label is empty. An empty string
// means there is no next page.
func nextPageScript(pager, label string) string {
	return fmt.Sprintf(`(() => {
	const links = Array.from(document.querySelectorAll(%s));
	const label = %s;
	const next = label === ""
		? links[links.length - 1]
		: links.find(a => (a.textContent || "").includes(label));
	return (next && next.href) || "";
})()`, jsString(pager), jsString(label))
}
