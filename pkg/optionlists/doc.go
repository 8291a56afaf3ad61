// Package optionlists serves named lists of records as external sources.
//
// GET {route}/{list} returns {"data": [...]} filtered by the search and limit
// query parameters, the shape a select backed by x-externalSource expects.
// GET or POST {route}/{list}/validate answers {"isValid": bool, "message": ""}
// for the value sent as a query parameter or JSON body, the shape delegated
// validation expects. Lists are usually loaded from a YAML file.
package optionlists
