package engine

import (
	"net/url"
	"strconv"

	"github.com/tbruni/weekendfly/db"
)

const ryanairSelectURL = "https://www.ryanair.com/it/it/trip/flights/select"

// BookingLink is one bookable itinerary for a deal.
type BookingLink struct {
	Label string `json:"label"`
	URL   string `json:"url"`
}

// BookingLinks builds checkout links for a deal. A standard round trip gets a
// single return booking link; metro pairs use different airports on one side,
// which Ryanair cannot book as a return, so those get two one-way links.
func BookingLinks(deal db.DealView, party int) []BookingLink {
	if party < 1 {
		party = 1
	}
	standard := deal.Outbound.Destination == deal.Inbound.Origin &&
		deal.Outbound.Origin == deal.Inbound.Destination
	if standard {
		return []BookingLink{
			{Label: "Book Now", URL: selectURL(deal.Outbound, &deal.Inbound, party)},
		}
	}
	return []BookingLink{
		{Label: "Book Outbound", URL: selectURL(deal.Outbound, nil, party)},
		{Label: "Book Return", URL: selectURL(deal.Inbound, nil, party)},
	}
}

// selectURL builds a flight-select URL for one leg, or for a return trip when
// returnLeg is set. The tp-prefixed parameters mirror the plain ones; the
// booking flow reads both.
func selectURL(leg db.Flight, returnLeg *db.Flight, party int) string {
	adults := strconv.Itoa(party)
	dateOut := leg.Departure.UTC().Format("2006-01-02")

	params := url.Values{}
	params.Set("adults", adults)
	params.Set("teens", "0")
	params.Set("children", "0")
	params.Set("infants", "0")
	params.Set("dateOut", dateOut)
	params.Set("isConnectedFlight", "false")
	params.Set("discount", "0")
	params.Set("promoCode", "")
	params.Set("originIata", leg.Origin)
	params.Set("destinationIata", leg.Destination)
	params.Set("tpAdults", adults)
	params.Set("tpTeens", "0")
	params.Set("tpChildren", "0")
	params.Set("tpInfants", "0")
	params.Set("tpStartDate", dateOut)
	params.Set("tpDiscount", "0")
	params.Set("tpPromoCode", "")
	params.Set("tpOriginIata", leg.Origin)
	params.Set("tpDestinationIata", leg.Destination)

	if returnLeg != nil {
		dateIn := returnLeg.Departure.UTC().Format("2006-01-02")
		params.Set("isReturn", "true")
		params.Set("dateIn", dateIn)
		params.Set("tpEndDate", dateIn)
	} else {
		params.Set("isReturn", "false")
		params.Set("dateIn", "")
		params.Set("tpEndDate", "")
	}

	return ryanairSelectURL + "?" + params.Encode()
}
