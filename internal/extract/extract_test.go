package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const resultsPage = `<!DOCTYPE html>
<html><head><title>golang_search</title></head>
<body>
<div id="content_left">
  <div class="result c-container" mu="https://go.dev/">
    <h3 class="t"><a href="http://www.baidu.com/link?url=aaa">The Go
      Programming   Language</a></h3>
    <a class="c-showurl">go.dev/</a>
  </div>
  <div class="result-op c-container">
    <h3 class="t"><a href="http://www.baidu.com/link?url=bbb">Go by Example</a></h3>
    <div class="f13"><a class="c-showurl">gobyexample.com/&nbsp;</a></div>
  </div>
  <div class="result c-container">
    <h3 class="t"><a href="/link?url=ccc">Buy ads now</a></h3>
    <span class="c-color-gray">ads.example.com</span>
  </div>
  <div class="c-container"><p>no heading here</p></div>
</div>
<div id="content_right">
  <div class="c-container"><h3><a href="http://elsewhere">Sidebar</a></h3></div>
</div>
</body></html>`

func TestExtract(t *testing.T) {
	e := New(Rules{})

	results, err := e.ExtractString(resultsPage)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, 0, results[0].Index)
	assert.Equal(t, "The Go Programming Language", results[0].Title)
	assert.Equal(t, "http://www.baidu.com/link?url=aaa", results[0].Link)
	assert.Equal(t, "https://go.dev/", results[0].LandingFragment, "mu attribute wins over displayed url")

	assert.Equal(t, 1, results[1].Index)
	assert.Equal(t, "Go by Example", results[1].Title)
	assert.Equal(t, "gobyexample.com/", results[1].LandingFragment)

	assert.Equal(t, 2, results[2].Index)
	assert.Equal(t, "/link?url=ccc", results[2].Link)
	assert.Equal(t, "ads.example.com", results[2].LandingFragment)
}

func TestNewFillsEmptyRules(t *testing.T) {
	assert.Equal(t, DefaultRules(), New(Rules{}).Rules())

	custom := New(Rules{Anchors: "h2 a", LandingAttr: "data-url"}).Rules()
	assert.Equal(t, "h2 a", custom.Anchors)
	assert.Equal(t, "data-url", custom.LandingAttr)
	assert.Equal(t, DefaultRules().Container, custom.Container)
}

func TestExtractEmptyPage(t *testing.T) {
	e := New(DefaultRules())

	results, err := e.ExtractString("")
	require.NoError(t, err)
	assert.Empty(t, results)

	results, err = e.ExtractString("<html><body><p>nothing found</p></body></html>")
	require.NoError(t, err)
	assert.NotNil(t, results)
	assert.Empty(t, results)
}

func TestExtractNilReader(t *testing.T) {
	_, err := New(DefaultRules()).Extract(nil)
	assert.ErrorIs(t, err, ErrNoDocument)
}

func TestCustomRules(t *testing.T) {
	page := `<ol><li class="r"><a class="t" href="https://x">X</a><cite>x.org</cite></li></ol>`
	e := New(Rules{Anchors: "li.r a.t", Container: "li.r", Landing: "cite"})

	results, err := e.ExtractString(page)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "x.org", results[0].LandingFragment)
	assert.Equal(t, "li.r a.t", e.Rules().Anchors)
}
