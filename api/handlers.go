package api

import (
	"errors"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbruni/weekendfly/db"
	"github.com/tbruni/weekendfly/engine"
	"github.com/tbruni/weekendfly/iata"
	"github.com/tbruni/weekendfly/metro"
	"github.com/tbruni/weekendfly/pkg/notify"
)

const topicPrefix = "weekendfly"

// dealResponse is a deal view with ready-made booking links.
type dealResponse struct {
	db.DealView
	BookingLinks []engine.BookingLink `json:"booking_links"`
}

// metroGroup collects deals whose destination airports share a metro area.
type metroGroup struct {
	Airports []string       `json:"airports"`
	Deals    []dealResponse `json:"deals"`
}

func listDeals(database *db.DB, index *metro.Index) gin.HandlerFunc {
	return func(c *gin.Context) {
		var filter db.DealFilter
		if raw := c.Query("profile_id"); raw != "" {
			id, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "profile_id must be an integer"})
				return
			}
			filter.ProfileID = id
		}
		filter.Origin = strings.ToUpper(c.Query("origin"))
		filter.Destination = strings.ToUpper(c.Query("destination"))

		deals, err := database.Store().Deals(c.Request.Context(), filter)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list deals"})
			c.Error(err)
			return
		}

		responses := make([]dealResponse, 0, len(deals))
		for _, deal := range deals {
			responses = append(responses, dealResponse{
				DealView:     deal,
				BookingLinks: engine.BookingLinks(deal, deal.Outbound.Party),
			})
		}

		if c.Query("group") == "metro" {
			c.JSON(http.StatusOK, groupByMetro(responses, index))
			return
		}
		c.JSON(http.StatusOK, responses)
	}
}

// groupByMetro buckets deals whose destination areas overlap. The area of a
// deal is the nearby set of its outbound destination united with that of its
// inbound origin, so a Girona arrival and a Barcelona departure land in the
// same bucket. Input arrives cheapest first and groups keep that order.
func groupByMetro(deals []dealResponse, index *metro.Index) []metroGroup {
	groups := make([]metroGroup, 0)
	areas := make([]map[string]bool, 0)

	for _, deal := range deals {
		area := index.NearbySet(deal.Outbound.Destination)
		for code := range index.NearbySet(deal.Inbound.Origin) {
			area[code] = true
		}

		placed := false
		for i, existing := range areas {
			if intersects(existing, area) {
				for code := range area {
					existing[code] = true
				}
				groups[i].Deals = append(groups[i].Deals, deal)
				groups[i].Airports = sortedCodes(existing)
				placed = true
				break
			}
		}
		if !placed {
			areas = append(areas, area)
			groups = append(groups, metroGroup{
				Airports: sortedCodes(area),
				Deals:    []dealResponse{deal},
			})
		}
	}
	return groups
}

func intersects(a, b map[string]bool) bool {
	for code := range b {
		if a[code] {
			return true
		}
	}
	return false
}

func sortedCodes(set map[string]bool) []string {
	codes := make([]string, 0, len(set))
	for code := range set {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

func listProfiles(database *db.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		profiles, err := database.Store().ListProfiles(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list profiles"})
			c.Error(err)
			return
		}
		c.JSON(http.StatusOK, profiles)
	}
}

func getProfile(database *db.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "profile id must be an integer"})
			return
		}
		profile, err := database.Store().ProfileByID(c.Request.Context(), id)
		if errors.Is(err, db.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "profile not found"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch profile"})
			c.Error(err)
			return
		}
		c.JSON(http.StatusOK, profile)
	}
}

func createProfile(database *db.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var profile db.SearchProfile
		if err := c.ShouldBindJSON(&profile); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid profile payload"})
			return
		}
		profile.ID = 0
		profile.Active = true
		profile.Normalize()
		if err := profile.Validate(); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if profile.NtfyTopic == "" {
			profile.NtfyTopic = notify.GenerateTopic(topicPrefix)
		}
		if err := database.Store().SaveProfile(c.Request.Context(), &profile); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save profile"})
			c.Error(err)
			return
		}
		c.JSON(http.StatusCreated, profile)
	}
}

func nearbyAirports(index *metro.Index) gin.HandlerFunc {
	return func(c *gin.Context) {
		code := strings.ToUpper(c.Param("code"))
		airport, ok := iata.Lookup(code)
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown airport code"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"code":      airport.Code,
			"city":      airport.City,
			"country":   airport.Country,
			"radius_km": index.RadiusKm(),
			"nearby":    index.Nearby(code),
		})
	}
}
