// Package domain models the wind-turbine (aerogerador) records published by
// ANEEL's SIGEL geospatial registry and the corrections applied to them.
//
// # Data Source
//
// Records come from the SIGEL ArcGIS MapServer layer
// https://sigel.aneel.gov.br/arcgis/rest/services/PORTAL/WFS/MapServer/0. The
// layer is read in two steps: an id-only query returns every OBJECTID, then the
// ids are fetched in chunks of at most 1000 (the service's maxRecordCount) as a
// GeoJSON FeatureCollection.
//
// # SIGEL Data Conventions
//
// Attributes:
//
//	NOME_EOL          wind farm (EOL) name, e.g. "Asa Branca III"
//	DEN_AEG           turbine designation inside the farm, e.g. "AEG-07"
//	UF                two-letter state code, sometimes null
//	OPERACAO          operation flag: "Sim", "Não", legacy "1" or null
//	POT_MW            nominal power, expected in megawatts
//	DATA_ATUALIZACAO  last update, epoch milliseconds (UTC)
//	EOL_VERSAO_ID, PROPRIETARIO, CEG, ORIGEM
//
// Geometry is a WGS-84 point in [lon, lat] order.
//
// Derived columns:
//
//	longitude, latitude          geometry x and y
//	DATA_ATUALIZACAO_FORMATADA   DATA_ATUALIZACAO in America/Sao_Paulo civil time
//
// # Known Defects
//
// The registry carries a handful of hand-verified defects, repaired by
// [DefaultRules] in this order:
//
//	"Serra de Gentio do Ouro XXIII" is a duplicate of "Serra do Gentio do Ouro XXIII"
//	with inconsistent values (4 rows, ALT_TORRE null). The misspelled group is dropped.
//
//	"Asa Branca III" has UF, CEG, PROPRIETARIO and EOL_VERSAO_ID null on 9 rows.
//	UF is set to "RN" like the other Asa Branca farms; the rest stays null.
//
//	"Barra XI" is registered in RN but its turbines plot in MG. UF is set to "MG".
//
//	POT_MW is off by a factor of 1000 on several farms:
//	  São Manoel 4200 (4.2 on sibling rows of the same EOL_VERSAO_ID)
//	  Asa Branca III 6750 and 3032
//	  Ventos de Santa Inês / São Carlos / Santa Rosa 0.0042
//	  Juramento 0.006
//	  Serra da Gameleira / Serra do Alagamar / Ventos de Santa Dulce 0.0062
//	A single turbine is never above 100 MW nor below 0.05 MW, so values above
//	the band are divided by 1000 and values below it multiplied by 1000. Every
//	listed case lands inside the band after one step, see [CorrectNominalPower].
//
//	OPERACAO uses "1" on 206 rows where the rest of the layer uses "Sim"; null
//	is reported as "Sem informação".
//
//	36 rows repeat the same (NOME_EOL, DEN_AEG, latitude, longitude). Only the
//	first occurrence is kept.
//
// ORIGEM is null on every row and is left as is.
package domain
