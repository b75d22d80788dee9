package dashboard

import (
	"net/http"
)

const indexPage = `<!doctype html>
<html>
<head><title>doppel — live findings</title></head>
<body>
<h1>doppel — live findings</h1>
<ul id="findings"></ul>
<script>
const ws = new WebSocket("ws://" + location.host + "/ws");
const list = document.getElementById("findings");
ws.onmessage = (evt) => {
  const msg = JSON.parse(evt.data);
  if (msg.type !== "finding") return;
  const li = document.createElement("li");
  li.textContent = msg.data.Verdict + " " + msg.data.Reason + " — " + msg.data.EndpointID;
  list.appendChild(li);
};
</script>
</body>
</html>`

// Mux returns an http.Handler serving the dashboard's index page and
// websocket endpoint.
func (h *Hub) Mux() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(indexPage))
	})
	mux.HandleFunc("/ws", h.ServeWS)
	return mux
}
