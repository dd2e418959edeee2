package restapi

import (
	"net/http"

	"github.com/twpayne/go-polyline"
	"optimetro.kochimetro.org/internal/models"
	"optimetro.kochimetro.org/internal/utils"
)

func (api *RestAPI) shapesHandler(w http.ResponseWriter, r *http.Request) {
	shapeID, _ := utils.GetIDFromContext(r.Context())

	api.GtfsManager.RLock()
	defer api.GtfsManager.RUnlock()

	shape, ok := api.GtfsManager.Shape(shapeID)
	if !ok || len(shape.Points) == 0 {
		api.sendNotFound(w, r)
		return
	}

	lineCoords := make([][]float64, 0, len(shape.Points))
	for i, point := range shape.Points {
		// Filter consecutive duplicate points to avoid zero-length segments
		if i > 0 && point.Latitude == shape.Points[i-1].Latitude && point.Longitude == shape.Points[i-1].Longitude {
			continue
		}
		lineCoords = append(lineCoords, []float64{point.Latitude, point.Longitude})
	}

	api.sendEntry(w, r, models.ShapeEntry{
		Length: len(lineCoords),
		Levels: "",
		Points: string(polyline.EncodeCoords(lineCoords)),
	})
}
