package gtfs

import (
	"sort"

	"github.com/tidwall/rtree"

	"optimetro.kochimetro.org/internal/models"
	"optimetro.kochimetro.org/internal/utils"
)

const NoRadiusLimit = -1

func buildStationSpatialIndex(stations []models.Station) *rtree.RTree {
	tree := &rtree.RTree{}
	for _, s := range stations {
		point := [2]float64{s.Lat, s.Lon}
		tree.Insert(point, point, s)
	}
	return tree
}

func queryStationsInBounds(tree *rtree.RTree, bounds utils.CoordinateBounds) []models.Station {
	var stations []models.Station
	if tree == nil {
		return stations
	}
	tree.Search(
		[2]float64{bounds.MinLat, bounds.MinLon},
		[2]float64{bounds.MaxLat, bounds.MaxLon},
		func(_, _ [2]float64, data interface{}) bool {
			if s, ok := data.(models.Station); ok {
				stations = append(stations, s)
			}
			return true
		},
	)
	return stations
}

// NearbyStations returns up to maxCount stations within radius meters of the
// point, nearest first, with Distance filled in. NoRadiusLimit searches the
// whole network.
// IMPORTANT: Caller must hold manager.RLock() before calling this method.
func (manager *Manager) NearbyStations(lat, lon, radius float64, maxCount int) []models.Station {
	var candidates []models.Station
	if radius == NoRadiusLimit {
		candidates = append(candidates, manager.stations...)
	} else {
		candidates = queryStationsInBounds(manager.stationSpatialIndex, utils.CalculateBounds(lat, lon, radius))
	}

	nearby := make([]models.Station, 0, len(candidates))
	for _, s := range candidates {
		s.Distance = utils.Distance(lat, lon, s.Lat, s.Lon)
		if radius != NoRadiusLimit && s.Distance > radius {
			continue
		}
		nearby = append(nearby, s)
	}

	sort.Slice(nearby, func(i, j int) bool {
		return nearby[i].Distance < nearby[j].Distance
	})
	if maxCount > 0 && len(nearby) > maxCount {
		nearby = nearby[:maxCount]
	}
	return nearby
}
