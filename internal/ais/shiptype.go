package ais

// ShipTypeName translates an AIS ship type code into a display name.
func ShipTypeName(code int) string {
	switch {
	case code >= 20 && code <= 29:
		return "Wing in ground"
	case code == 30:
		return "Fishing"
	case code == 31 || code == 32:
		return "Towing"
	case code == 33:
		return "Dredging or underwater ops"
	case code == 34:
		return "Diving ops"
	case code == 35:
		return "Military ops"
	case code == 36:
		return "Sailing"
	case code == 37:
		return "Pleasure Craft"
	case code >= 40 && code <= 49:
		return "High speed craft"
	case code == 50:
		return "Pilot Vessel"
	case code == 51:
		return "Search and Rescue vessel"
	case code == 52:
		return "Tug"
	case code == 53:
		return "Port Tender"
	case code == 54:
		return "Anti-pollution equipment"
	case code == 55, code == 58:
		return "Law Enforcement"
	case code == 56 || code == 57:
		return "Spare - Local Vessel"
	case code == 59:
		return "Noncombatant"
	case code >= 60 && code <= 69:
		return "Passenger"
	case code >= 70 && code <= 79:
		return "Cargo"
	case code >= 80 && code <= 89:
		return "Tanker"
	case code >= 90 && code <= 99:
		return "Other"
	default:
		return "None"
	}
}
