package prompt

import "github.com/kirillkom/engineering-analysis-ai/internal/core/domain"

var defaultChecklists = map[domain.EngineeringDomain][]string{
	domain.DomainRobotics: {
		"Degrees of freedom, kinematic chain and workspace",
		"Actuators, transmissions and expected torque margins",
		"Sensing, feedback and control architecture",
		"Payload, stiffness and end-effector design",
	},
	domain.DomainProductDesign: {
		"User interaction, ergonomics and accessibility",
		"Material and finish choices against cost targets",
		"Assembly count, fasteners and serviceability",
		"Aesthetics and brand consistency",
	},
	domain.DomainCAD: {
		"Printability: overhangs, supports and wall thickness",
		"Tolerances and fit between mating parts",
		"Orientation, infill and anisotropic strength",
		"Post-processing and surface finish",
	},
	domain.DomainMechanism: {
		"Linkages, joints and motion constraints",
		"Load paths, bearings and wear points",
		"Backlash, friction and lubrication",
		"Failure modes under cyclic loading",
	},
	domain.DomainElectronics: {
		"Component placement and trace routing",
		"Power delivery, decoupling and thermal management",
		"Signal integrity and EMI/EMC considerations",
		"Testability, connectors and manufacturability (DFM)",
	},
	domain.DomainCivil: {
		"Structural system and load paths",
		"Materials, connections and foundations",
		"Code compliance and safety factors",
		"Durability, maintenance and environmental exposure",
	},
	domain.DomainAerospace: {
		"Weight, structural efficiency and load factors",
		"Aerodynamic features and control surfaces",
		"Redundancy and certification considerations",
		"Thermal and vibration environment",
	},
	domain.DomainAutomotive: {
		"Powertrain, chassis and suspension features",
		"Crashworthiness and occupant safety",
		"Manufacturing volume and cost drivers",
		"Serviceability and durability",
	},
	domain.DomainManufacturing: {
		"Process flow, throughput and bottlenecks",
		"Tooling, fixturing and automation level",
		"Quality control and inspection points",
		"Operator safety and ergonomics",
	},
	domain.DomainOther: {
		"Primary function and operating principle",
		"Manufacturing considerations",
		"Safety and reliability factors",
	},
}
