// Copyright (c) 2026 SmartEco
// Licensed under the MIT License. See LICENSE file in the project root for details.

package backend

// modeDescriptions covers the mode ids the API is known to return.
var modeDescriptions = map[int]string{
	1:  "Plane trip",
	2:  "High-speed train trip",
	3:  "Train trip",
	4:  "Car trip",
	5:  "Electric car trip",
	6:  "Bus trip",
	7:  "Bike trip",
	8:  "E-bike trip",
	9:  "Coach trip",
	10: "Tram trip",
	11: "Metro trip",
	12: "Scooter or light motorbike trip",
	13: "Motorbike trip",
	14: "Suburban train trip",
	15: "Regional train trip",
	16: "Electric bus trip",
	17: "E-scooter trip",
	21: "Natural gas bus trip",
	22: "Carpool (1 passenger)",
	23: "Carpool (2 passengers)",
	24: "Carpool (3 passengers)",
	25: "Carpool (4 passengers)",
	26: "Electric carpool (1 passenger)",
	27: "Electric carpool (2 passengers)",
	28: "Electric carpool (3 passengers)",
	29: "Electric carpool (4 passengers)",
}

// UnknownMode is shown for ids outside the catalogue.
const UnknownMode = "Unknown trip"

// DescribeMode returns the display name for a mode id.
func DescribeMode(id int) string {
	if d, ok := modeDescriptions[id]; ok {
		return d
	}
	return UnknownMode
}
