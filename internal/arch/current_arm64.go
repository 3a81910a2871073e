package arch

var current Relocator = a64{}
