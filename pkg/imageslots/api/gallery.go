package api

import (
	"html/template"
	"log/slog"
	"net/http"

	"github.com/tendant/image-slots/pkg/imageslots"
)

// galleryTemplate renders a user's occupied slots as a simple grid page.
var galleryTemplate = template.Must(template.New("gallery").Parse(`<!doctype html>
<html>
<head>
    <title>{{.UserID}} images</title>
</head>
<body style="font-family:sans-serif">
    <h2>User: {{.UserID}}</h2>
    <div style="
        display:grid;
        grid-template-columns:repeat(auto-fill,minmax(200px,1fr));
        gap:16px;">
    {{range .Slots}}
        <div style="width:200px">
            <img src="{{.URL}}" style="width:100%; border:1px solid #ccc"/>
            <div style="text-align:center">#{{.Index}}</div>
        </div>
    {{end}}
    </div>
</body>
</html>
`))

type galleryData struct {
	UserID string
	Slots  []imageslots.SlotInfo
}

func (h *Handler) renderGallery(w http.ResponseWriter, userID string, slots []imageslots.SlotInfo) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := galleryTemplate.Execute(w, galleryData{UserID: userID, Slots: slots}); err != nil {
		slog.Error("failed to render gallery", "user_id", userID, "error", err)
	}
}
