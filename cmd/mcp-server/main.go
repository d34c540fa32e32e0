// Command mcp-server exposes the deal store to MCP clients over stdio. All
// tools are read-only; harvesting and matching stay with the main binary.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/tbruni/weekendfly/config"
	"github.com/tbruni/weekendfly/db"
	"github.com/tbruni/weekendfly/engine"
	"github.com/tbruni/weekendfly/iata"
	"github.com/tbruni/weekendfly/metro"
	"github.com/tbruni/weekendfly/pkg/buildinfo"
)

const defaultDealLimit = 20

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	database, err := db.New(cfg.DatabaseConfig)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening database: %v\n", err)
		os.Exit(1)
	}
	defer database.Close()

	if err := database.InitSchema(); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing schema: %v\n", err)
		os.Exit(1)
	}

	index := metro.New(cfg.MatchConfig.NearbyRadiusKm)

	s := server.NewMCPServer(
		"weekendfly-mcp",
		buildinfo.Version,
		server.WithLogging(),
	)

	searchDeals := mcp.NewTool("search_deals",
		mcp.WithDescription("Search stored round-trip flight deals, cheapest first"),
		mcp.WithString("origin",
			mcp.Description("Outbound origin airport code (e.g., PSA)"),
		),
		mcp.WithString("destination",
			mcp.Description("Outbound destination airport code (e.g., BCN)"),
		),
		mcp.WithNumber("profile_id",
			mcp.Description("Restrict to one search profile"),
		),
		mcp.WithNumber("max_price_pp",
			mcp.Description("Maximum total price per person"),
		),
		mcp.WithNumber("limit",
			mcp.Description(fmt.Sprintf("Maximum number of deals to return (default %d)", defaultDealLimit)),
		),
	)

	s.AddTool(searchDeals, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		argsMap, ok := request.Params.Arguments.(map[string]interface{})
		if !ok {
			return mcp.NewToolResultError("Invalid arguments format"), nil
		}

		var filter db.DealFilter
		if origin, _ := argsMap["origin"].(string); origin != "" {
			filter.Origin = strings.ToUpper(origin)
		}
		if destination, _ := argsMap["destination"].(string); destination != "" {
			filter.Destination = strings.ToUpper(destination)
		}
		if profileID, _ := argsMap["profile_id"].(float64); profileID > 0 {
			filter.ProfileID = int64(profileID)
		}
		maxPrice, _ := argsMap["max_price_pp"].(float64)

		limitVal, _ := argsMap["limit"].(float64)
		limit := int(limitVal)
		if limit <= 0 {
			limit = defaultDealLimit
		}

		deals, err := database.Store().Deals(ctx, filter)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Error listing deals: %v", err)), nil
		}

		type dealResult struct {
			ProfileID    int64                `json:"profile_id"`
			Origin       string               `json:"origin"`
			Destination  string               `json:"destination"`
			Depart       string               `json:"depart"`
			Return       string               `json:"return"`
			TotalPricePP float64              `json:"total_price_pp"`
			Currency     string               `json:"currency"`
			BookingLinks []engine.BookingLink `json:"booking_links"`
		}

		results := make([]dealResult, 0, limit)
		for _, deal := range deals {
			if maxPrice > 0 && deal.TotalPricePP > maxPrice {
				continue
			}
			results = append(results, dealResult{
				ProfileID:    deal.ProfileID,
				Origin:       deal.Outbound.Origin,
				Destination:  deal.Outbound.Destination,
				Depart:       deal.Outbound.Departure.Format("2006-01-02 15:04"),
				Return:       deal.Inbound.Departure.Format("2006-01-02 15:04"),
				TotalPricePP: deal.TotalPricePP,
				Currency:     deal.Outbound.Currency,
				BookingLinks: engine.BookingLinks(deal, deal.Outbound.Party),
			})
			if len(results) == limit {
				break
			}
		}

		jsonBytes, err := json.MarshalIndent(map[string]interface{}{"deals": results}, "", "  ")
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Error marshaling response: %v", err)), nil
		}
		return mcp.NewToolResultText(string(jsonBytes)), nil
	})

	nearbyAirports := mcp.NewTool("nearby_airports",
		mcp.WithDescription("List airports within the configured metro radius of an airport"),
		mcp.WithString("code",
			mcp.Description("Airport IATA code (e.g., BCN)"),
		),
	)

	s.AddTool(nearbyAirports, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		argsMap, ok := request.Params.Arguments.(map[string]interface{})
		if !ok {
			return mcp.NewToolResultError("Invalid arguments format"), nil
		}
		code, _ := argsMap["code"].(string)
		code = strings.ToUpper(code)
		airport, ok := iata.Lookup(code)
		if !ok {
			return mcp.NewToolResultError(fmt.Sprintf("Unknown airport code: %s", code)), nil
		}

		jsonBytes, err := json.MarshalIndent(map[string]interface{}{
			"code":      airport.Code,
			"city":      airport.City,
			"country":   airport.Country,
			"radius_km": index.RadiusKm(),
			"nearby":    index.Nearby(code),
		}, "", "  ")
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Error marshaling response: %v", err)), nil
		}
		return mcp.NewToolResultText(string(jsonBytes)), nil
	})

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
	}
}
