package browser

// Every page presents as the same desktop Chrome so listings render their
// desktop layout.
const (
	DesktopUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

	ViewportWidth  = 1280
	ViewportHeight = 720
)
