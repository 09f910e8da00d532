package livereload

import (
	"bytes"
	"net/http"
	"path"
	"strings"

	"github.com/spf13/afero"
)

// clientScript opens the reload socket and reloads the page on every reload
// message.
const clientScript = `<script>
(function () {
  var proto = location.protocol === "https:" ? "wss://" : "ws://";
  var ws = new WebSocket(proto + location.host + "` + Path + `");
  ws.onmessage = function (event) {
    var message = JSON.parse(event.data);
    if (message.type === "reload") {
      location.reload();
    }
  };
})();
</script>
`

// InjectClient adds the reload client to an HTML page, in front of the last
// </body>, or at the end when there is none.
func InjectClient(page []byte) []byte {
	at := bytes.LastIndex(bytes.ToLower(page), []byte("</body>"))
	if at < 0 {
		at = len(page)
	}

	out := make([]byte, 0, len(page)+len(clientScript))
	out = append(out, page[:at]...)
	out = append(out, clientScript...)
	out = append(out, page[at:]...)
	return out
}

// injectHandler serves HTML pages of fs with the reload client added and
// hands everything else to next. Files on disk are never modified.
type injectHandler struct {
	fs   afero.Fs
	next http.Handler
}

func (h *injectHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	name := path.Clean("/" + r.URL.Path)
	if strings.HasSuffix(r.URL.Path, "/") {
		name = path.Join(name, "index.html")
	}
	if !isHTML(name) || (r.Method != http.MethodGet && r.Method != http.MethodHead) {
		h.next.ServeHTTP(w, r)
		return
	}

	page, err := afero.ReadFile(h.fs, name)
	if err != nil {
		h.next.ServeHTTP(w, r)
		return
	}

	body := InjectClient(page)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodGet {
		_, _ = w.Write(body)
	}
}

func isHTML(name string) bool {
	switch strings.ToLower(path.Ext(name)) {
	case ".html", ".htm":
		return true
	default:
		return false
	}
}
