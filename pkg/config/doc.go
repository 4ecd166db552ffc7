// Package config loads the rulekit workspace configuration and the
// read-only configuration records.
//
// The workspace configuration is a YAML file (rulekit.yaml) validated with
// struct tags:
//
//	cfg, err := config.LoadAppConfig("rulekit.yaml")
//	if err != nil {
//	    return err
//	}
//
// Configuration records are written in CUE. Every top-level field of the
// unified sources is one Record, whose fields keep their declaration order
// when they are read through a container:
//
//	set, err := config.NewRecordLoader().Load("records/")
//	if err != nil {
//	    return err
//	}
//	site, _ := set.Get("site")
//	c, _ := site.Container()
//	name, _ := c.GetPath("name")
package config
