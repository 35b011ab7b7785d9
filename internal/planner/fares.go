package planner

import "time"

// PassengerClass selects the fare schedule for a rider.
type PassengerClass int

const (
	PassengerAdult PassengerClass = iota
	PassengerYouth
	PassengerSenior
)

func (c PassengerClass) String() string {
	switch c {
	case PassengerYouth:
		return "youth"
	case PassengerSenior:
		return "senior"
	default:
		return "adult"
	}
}

// Single-boarding fares by passenger class, in dollars.
const (
	AdultFare  = 3.00
	YouthFare  = 1.50
	SeniorFare = 1.25
)

// TransferWindow is how long a transfer credential keeps additional
// boardings free after the first boarding.
const TransferWindow = 150 * time.Minute

// Pass prices are reference values for cost-comparison displays. They are
// not used in itinerary cost computation.
const (
	DayPassPrice     = 7.50
	MonthlyPassPrice = 80.00
	AnnualPassPrice  = 880.00
)

// SingleFare returns the one-boarding fare for a passenger class.
func SingleFare(class PassengerClass) float64 {
	switch class {
	case PassengerYouth:
		return YouthFare
	case PassengerSenior:
		return SeniorFare
	default:
		return AdultFare
	}
}

// CalculateTripCost prices a trip with the given number of boardings.
// A rider holding a transfer credential pays one fare for all boardings
// inside the transfer window; without it, every boarding is charged
// independently. boardings < 1 costs nothing.
func CalculateTripCost(class PassengerClass, boardings int, hasTransferCredential bool) float64 {
	if boardings < 1 {
		return 0
	}
	fare := SingleFare(class)
	if hasTransferCredential {
		return fare
	}
	return fare * float64(boardings)
}

// CalculateTimedTripCost prices boardings at explicit times. With a transfer
// credential, a new fare is charged only when a boarding falls outside the
// transfer window opened by the last paid boarding.
func CalculateTimedTripCost(class PassengerClass, boardingTimes []time.Time, hasTransferCredential bool) float64 {
	if len(boardingTimes) == 0 {
		return 0
	}
	fare := SingleFare(class)
	if !hasTransferCredential {
		return fare * float64(len(boardingTimes))
	}

	total := fare
	windowStart := boardingTimes[0]
	for _, t := range boardingTimes[1:] {
		if t.Sub(windowStart) > TransferWindow {
			total += fare
			windowStart = t
		}
	}
	return total
}
