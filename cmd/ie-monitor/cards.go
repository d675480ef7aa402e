// cards.go - installs the domain-stack slot cards into a provisioning
// bundle and records them in the --features report.
package main

import (
	bus "github.com/intuitionamiga/bus-fabric"
	"github.com/intuitionamiga/bus-fabric/cards/beeper"
	"github.com/intuitionamiga/bus-fabric/cards/mailcard"
	"github.com/intuitionamiga/bus-fabric/cards/memclip"
	"github.com/intuitionamiga/bus-fabric/cards/statuscard"
)

func registerDefaultCards(bundle *bus.ProvisioningBundle) {
	bundle.WithDevice(memclip.New())
	bundle.WithDevice(beeper.New())
	bundle.WithDevice(statuscard.New())
	bundle.WithDevice(mailcard.New())

	compiledFeatures = append(compiledFeatures,
		memclipBackendLabel,
		beeperBackendLabel,
		statuscardBackendLabel,
		"mailcard (stdlib register protocol)",
	)
}
