package memory

import "github.com/riskibarqy/perf-import/internal/domain/player"

const DemoTeamID = "demo-team"

// SeedPlayers returns the demo roster used when no database is configured.
func SeedPlayers() []player.Candidate {
	return []player.Candidate{
		{PlayerID: "demo-gk-1", TeamID: DemoTeamID, FirstName: "Gianluca", LastName: "Ferretti", Position: player.PositionGoalkeeper, ShirtNumber: 1},
		{PlayerID: "demo-def-2", TeamID: DemoTeamID, FirstName: "Alessandro", LastName: "Conti", Position: player.PositionDefender, ShirtNumber: 2},
		{PlayerID: "demo-def-4", TeamID: DemoTeamID, FirstName: "Davide", LastName: "Moretti", Position: player.PositionDefender, ShirtNumber: 4},
		{PlayerID: "demo-def-5", TeamID: DemoTeamID, FirstName: "Nicolò", LastName: "Galli", Position: player.PositionDefender, ShirtNumber: 5},
		{PlayerID: "demo-mid-6", TeamID: DemoTeamID, FirstName: "Federico", LastName: "Romano", Position: player.PositionMidfielder, ShirtNumber: 6},
		{PlayerID: "demo-mid-8", TeamID: DemoTeamID, FirstName: "Matteo", LastName: "Rossi", Position: player.PositionMidfielder, ShirtNumber: 8},
		{PlayerID: "demo-mid-10", TeamID: DemoTeamID, FirstName: "Lorenzo", LastName: "Esposito", Position: player.PositionMidfielder, ShirtNumber: 10},
		{PlayerID: "demo-fwd-9", TeamID: DemoTeamID, FirstName: "Mario", LastName: "Rossi", Position: player.PositionForward, ShirtNumber: 9},
		{PlayerID: "demo-fwd-11", TeamID: DemoTeamID, FirstName: "Andrea", LastName: "De Luca", Position: player.PositionForward, ShirtNumber: 11},
	}
}
