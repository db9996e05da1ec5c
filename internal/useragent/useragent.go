// Package useragent extracts device class, browser and OS from User-Agent headers.
package useragent

import (
	"strings"
	"sync"

	"github.com/cloudflare/ahocorasick"
	"github.com/mssola/useragent"
)

// Tokens that mark a tablet even when the UA also claims to be mobile.
var tabletTokens = []string{
	"ipad",
	"tablet",
	"kindle",
	"silk/",
	"playbook",
	"nexus 7",
	"nexus 9",
	"nexus 10",
	"sm-t",
	"galaxy tab",
}

// Info is the parsed form of a User-Agent string. Tablets are never reported as mobile.
type Info struct {
	Mobile         bool
	Tablet         bool
	Bot            bool
	Browser        string
	BrowserVersion string
	OS             string
	OSFamily       string
	OSVersion      string
}

// Parser is safe for concurrent use.
type Parser struct {
	mu      sync.Mutex // the matcher keeps per-match scratch state
	tablets *ahocorasick.Matcher
}

func NewParser() *Parser {
	return &Parser{tablets: ahocorasick.NewStringMatcher(tabletTokens)}
}

// Parse never fails; unrecognized parts are left empty.
func (p *Parser) Parse(raw string) Info {
	if strings.TrimSpace(raw) == "" {
		return Info{}
	}

	ua := useragent.New(raw)
	browser, version := ua.Browser()
	osInfo := ua.OSInfo()
	lower := strings.ToLower(raw)

	tablet := p.hasTabletToken(lower) ||
		(strings.Contains(lower, "android") && !strings.Contains(lower, "mobile"))

	return Info{
		Mobile:         ua.Mobile() && !tablet,
		Tablet:         tablet,
		Bot:            ua.Bot(),
		Browser:        browser,
		BrowserVersion: version,
		OS:             ua.OS(),
		OSFamily:       osInfo.Name,
		OSVersion:      osInfo.Version,
	}
}

func (p *Parser) hasTabletToken(lower string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	return len(p.tablets.Match([]byte(lower))) > 0
}
