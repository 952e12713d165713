// Package hcl provides the concrete HCL implementation of the config.Loader
// interface. It is responsible for file discovery, parsing, expression
// evaluation (variables, environment, functions) and the translation of
// decoded blocks into the format-agnostic config model.
//
// A minimal pipeline looks like this:
//
//	variable "python" {
//	  default = "3.6"
//	}
//
//	stage "build" {
//	  step "package" {
//	    run = "conda build --python=${var.python} --output-folder build_output ."
//	  }
//	  publish "pkg" {
//	    path = "build_output"
//	  }
//	}
//
//	stage "test" {
//	  depends_on  = ["build"]
//	  parallelism = 4
//	  env = {
//	    PYTHONHASHSEED = "0"
//	  }
//	  restore "pkg" {
//	    path = "build_output"
//	  }
//	  step "test" {
//	    run = "conda build --test build_output/*.tar.bz2"
//	  }
//	}
package hcl
